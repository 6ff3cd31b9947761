package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxlot-matcher-go/internal/models"
)

func TestParseTime(t *testing.T) {
	testCases := []struct {
		value string
		want  time.Time
		ok    bool
	}{
		{"2021-03-04T10:11:12Z", time.Date(2021, 3, 4, 10, 11, 12, 0, time.UTC), true},
		{"2021-03-04 10:11:12", time.Date(2021, 3, 4, 10, 11, 12, 0, time.UTC), true},
		{" 2021-03-04 ", time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), true},
		{"04.03.2021", time.Time{}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.value, func(t *testing.T) {
			got, err := ParseTime(tc.value)
			if !tc.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got))
		})
	}
}

func TestReadTrades(t *testing.T) {
	// Arrange
	input := `account,symbol,suffix,currency,time,quantity,price,proceeds,commission,basis,realized_pl,code,transfer,target
U1,AAPL,,USD,2020-01-02 10:00:00,10,100,-1000,-1,1001,0,O,false,
U1,AAPL,,USD,2020-01-02 10:00:00,10,100,-1000,-1,1001,0,O,false,
U1,AAPL,,USD,2021-01-04 10:00:00,-10,120,1200,-1,-1001,198,C,false,
U1,AAPL,,USD,2021-02-01 10:00:00,5,0,0,0,0,0,,true,U2
U1,XYZ,,USD,2021-03-01 10:00:00,1,10,-10,0,10,0,P,false,
`

	// Act
	trades, diags, err := ReadTrades(strings.NewReader(input), 7)

	// Assert
	require.NoError(t, err)
	require.Len(t, trades, 4, "the duplicate row is dropped")
	assert.Equal(t, models.ActionOpen, trades[0].Action)
	assert.Equal(t, models.TypeLong, trades[0].Type)
	assert.Equal(t, 7, trades[0].Seq)
	assert.Equal(t, 9, trades[1].Seq)
	assert.Equal(t, models.ActionClose, trades[1].Action)
	assert.Equal(t, models.TypeTransferIn, trades[2].Type)
	assert.Equal(t, "U2", trades[2].Target)
	require.Len(t, diags, 1)
	assert.Equal(t, "XYZ", diags[0].Symbol)
}

func TestReadTradesBadTime(t *testing.T) {
	input := "account,symbol,time,quantity,code\nU1,AAPL,yesterday,1,O\n"

	_, _, err := ReadTrades(strings.NewReader(input), 0)

	assert.ErrorContains(t, err, "row 1")
}

func TestReadActions(t *testing.T) {
	input := `account,symbol,time,kind,ratio,quantity,proceeds,currency,description
U1,AAPL,2020-08-31,Split,0,0,0,USD,AAPL(US0378331005) Split 4 for 1
U1,NVDA,2024-06-10,split,10,0,0,USD,
U1,SOLV,2024-04-01,Spinoff,0,25,0,USD,SOLV spin-off from MMM
U1,XYZ,2024-05-01,Merger,0,0,0,USD,
`

	actions, err := ReadActions(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, actions, 4)
	assert.Equal(t, models.KindSplit, actions[0].Kind)
	assert.Equal(t, 4.0, actions[0].Ratio)
	assert.Equal(t, 10.0, actions[1].Ratio)
	assert.Equal(t, models.KindSpinoff, actions[2].Kind)
	assert.Equal(t, 25.0, actions[2].Quantity)
	assert.Equal(t, models.KindUnknown, actions[3].Kind)
}

func TestReadActionsSplitWithoutRatio(t *testing.T) {
	input := "account,symbol,time,kind,ratio,quantity,proceeds,currency,description\nU1,AAPL,2020-08-31,Split,0,0,0,USD,reverse split\n"

	_, err := ReadActions(strings.NewReader(input))

	assert.ErrorContains(t, err, "split without ratio")
}

func TestReadSnapshots(t *testing.T) {
	input := "account,symbol,date,quantity,price,currency\nU1,AAPL,2021-12-31,40,177.57,USD\n"

	snapshots, err := ReadSnapshots(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, 40.0, snapshots[0].Quantity)
	assert.True(t, snapshots[0].Date.Equal(time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)))
}
