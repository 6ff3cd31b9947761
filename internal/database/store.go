package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taxlot-matcher-go/internal/models"
)

const batchSize = 500

// Store persists imported data and pairing results.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SaveTrades inserts trades, ignoring ones whose hash is already stored.
// It returns the number of rows actually inserted.
func (s *Store) SaveTrades(ctx context.Context, trades []models.Trade) (int64, error) {
	if len(trades) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&trades, batchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to save trades: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// LoadTrades returns every stored trade in import order. Derived fields are
// left zero; split ratios start at one.
func (s *Store) LoadTrades(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.db.WithContext(ctx).Order("time").Order("seq").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}
	for i := range trades {
		trades[i].SplitRatio = 1
	}
	return trades, nil
}

// NextSeq returns the sequence number the next imported trade should get.
func (s *Store) NextSeq(ctx context.Context) (int, error) {
	var last int
	row := s.db.WithContext(ctx).Model(&models.Trade{}).Select("COALESCE(MAX(seq), -1)").Row()
	if err := row.Scan(&last); err != nil {
		return 0, fmt.Errorf("failed to read sequence: %w", err)
	}
	return last + 1, nil
}

// SaveActions inserts corporate actions, skipping duplicates.
func (s *Store) SaveActions(ctx context.Context, actions []models.CorporateAction) (int64, error) {
	if len(actions) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&actions, batchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to save corporate actions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// LoadActions returns every stored corporate action in time order.
func (s *Store) LoadActions(ctx context.Context) ([]models.CorporateAction, error) {
	var actions []models.CorporateAction
	if err := s.db.WithContext(ctx).Order("time").Order("id").Find(&actions).Error; err != nil {
		return nil, fmt.Errorf("failed to load corporate actions: %w", err)
	}
	return actions, nil
}

// SaveSnapshots inserts snapshots; a second report for the same account,
// symbol and date replaces the first.
func (s *Store) SaveSnapshots(ctx context.Context, snapshots []models.PositionSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account"}, {Name: "symbol"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "price", "currency"}),
		}).
		CreateInBatches(&snapshots, batchSize).Error
	if err != nil {
		return fmt.Errorf("failed to save snapshots: %w", err)
	}
	return nil
}

// LoadSnapshots returns the broker snapshots ordered by date, account and symbol.
func (s *Store) LoadSnapshots(ctx context.Context) ([]models.PositionSnapshot, error) {
	var snapshots []models.PositionSnapshot
	if err := s.db.WithContext(ctx).Order("date").Order("account").Order("symbol").Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	return snapshots, nil
}

// SaveMappings upserts symbol mappings by symbol.
func (s *Store) SaveMappings(ctx context.Context, mappings []models.SymbolMapping) error {
	if len(mappings) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{"ticker", "change_date", "manual"}),
		}).
		Create(&mappings).Error
	if err != nil {
		return fmt.Errorf("failed to save symbol mappings: %w", err)
	}
	return nil
}

// LoadMappings returns every symbol mapping ordered by symbol.
func (s *Store) LoadMappings(ctx context.Context) ([]models.SymbolMapping, error) {
	var mappings []models.SymbolMapping
	if err := s.db.WithContext(ctx).Order("symbol").Find(&mappings).Error; err != nil {
		return nil, fmt.Errorf("failed to load symbol mappings: %w", err)
	}
	return mappings, nil
}

// LoadPairs returns every stored pair ordered by instrument and closing time.
func (s *Store) LoadPairs(ctx context.Context) ([]models.Pair, error) {
	var pairs []models.Pair
	if err := s.db.WithContext(ctx).Order("display_name").Order("close_time").Order("open_time").Find(&pairs).Error; err != nil {
		return nil, fmt.Errorf("failed to load pairs: %w", err)
	}
	return pairs, nil
}

// ReplacePairsFrom deletes the pairs closing in fromYear or later and stores
// the given ones together with the run record, all in one transaction.
// Pairs closing before fromYear are never written.
func (s *Store) ReplacePairsFrom(ctx context.Context, fromYear int, pairs []models.Pair, run models.PairingRun) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("close_year >= ?", fromYear).Delete(&models.Pair{}).Error; err != nil {
			return fmt.Errorf("failed to delete pairs: %w", err)
		}

		fresh := make([]models.Pair, 0, len(pairs))
		for _, p := range pairs {
			if p.CloseYear < fromYear {
				continue
			}
			p.ID = 0
			fresh = append(fresh, p)
		}
		if len(fresh) > 0 {
			if err := tx.CreateInBatches(&fresh, batchSize).Error; err != nil {
				return fmt.Errorf("failed to save pairs: %w", err)
			}
		}

		run.PairCount = len(fresh)
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("failed to save pairing run: %w", err)
		}
		return nil
	})
}

// LatestRun returns the most recent pairing run, or nil when none exists.
func (s *Store) LatestRun(ctx context.Context) (*models.PairingRun, error) {
	var runs []models.PairingRun
	if err := s.db.WithContext(ctx).Order("created_at desc").Limit(1).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to load pairing runs: %w", err)
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
