package scenario

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misionbonos/bondgame/internal/domain"
)

const sampleCSV = `type,bond_id,nombre,valor_nominal,tasa_cupon_anual,frecuencia_anual,vencimiento_anios,spread_bps,round,delta_tasa_bps,impacto_bps
BOND,B1,Soberano 3y,1000,0.08,2,3,0,,,
BOND,B2,Corporativo 5y,1000,0.06,2,5,150,,,
MARKET,,,,,,,,2,100,
IDIOS,B2,,,,,,,2,,200
`

func TestLoadParsesBondsAndEvents(t *testing.T) {
	res, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	require.Len(t, res.Bonds, 2)
	assert.Equal(t, domain.Bond{
		ID: "B1", Name: "Soberano 3y", FaceValue: 1000, CouponRate: 0.08,
		CouponFrequency: 2, MaturityYears: 3, SpreadBps: 0,
	}, res.Bonds[0])

	require.Len(t, res.Events, 2)
	assert.Equal(t, domain.MarketEvent{Round: 2, Kind: domain.EventMarket, MagnitudeBps: 100}, res.Events[0])
	assert.Equal(t, domain.MarketEvent{Round: 2, Kind: domain.EventIdiosyncratic, BondID: "B2", MagnitudeBps: 200}, res.Events[1])
	assert.Zero(t, res.Skipped)
}

func TestLoadAppliesDefaults(t *testing.T) {
	csv := "type,bond_id\nBOND,B1\nMARKET,\n"
	res, err := Load(strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, res.Bonds, 1)
	b := res.Bonds[0]
	assert.Equal(t, "B1", b.Name, "name falls back to the bond id")
	assert.Equal(t, DefaultFaceValue, b.FaceValue)
	assert.Equal(t, DefaultCouponRate, b.CouponRate)
	assert.Equal(t, DefaultFrequency, b.CouponFrequency)
	assert.Equal(t, DefaultMaturityYears, b.MaturityYears)

	require.Len(t, res.Events, 1)
	assert.Equal(t, DefaultRound, res.Events[0].Round)
	assert.Zero(t, res.Events[0].MagnitudeBps)
}

func TestLoadSemicolonSeparated(t *testing.T) {
	csv := "type;bond_id;valor_nominal\nBOND;B1;500\n"
	res, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Bonds, 1)
	assert.Equal(t, 500.0, res.Bonds[0].FaceValue)
}

func TestLoadRejectsZeroFrequencyWithDefault(t *testing.T) {
	csv := "type,bond_id,frecuencia_anual\nBOND,B1,0\n"
	res, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Bonds, 1)
	assert.Equal(t, DefaultFrequency, res.Bonds[0].CouponFrequency, "zero frequency would divide by zero downstream")
	assert.NotEmpty(t, res.Warnings)
}

func TestLoadSkipsUnknownAndIncompleteRows(t *testing.T) {
	csv := "type,bond_id\nWEIRD,B1\nBOND,\nIDIOS,\n"
	res, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Empty(t, res.Bonds)
	assert.Empty(t, res.Events)
	assert.Equal(t, 3, res.Skipped)
	assert.Len(t, res.Warnings, 3)
}

func TestLoadMissingTypeColumn(t *testing.T) {
	_, err := Load(strings.NewReader("bond_id,nombre\nB1,x\n"))
	assert.Error(t, err)
}
