// Package scenario parses moderator-uploaded CSV scenario files into typed
// bond and event records. The column set and per-field defaults match the
// worksheet format handed out with the game; malformed fields fall back to
// their defaults instead of failing the whole load.
package scenario

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/misionbonos/bondgame/internal/domain"
)

// Per-field defaults applied when a column is missing or unparsable.
const (
	DefaultFaceValue     = 1000.0
	DefaultCouponRate    = 0.08
	DefaultFrequency     = 2
	DefaultMaturityYears = 3.0
	DefaultSpreadBps     = 0.0
	DefaultRound         = 1
)

// Recognized row types. Any other value is skipped and reported.
const (
	rowBond   = "BOND"
	rowMarket = "MARKET"
	rowIdios  = "IDIOS"
)

// Result carries the parsed scenario plus load diagnostics for the
// moderator.
type Result struct {
	Bonds    []domain.Bond
	Events   []domain.MarketEvent
	Warnings []string
	Skipped  int
}

// Load parses a scenario CSV. Headers are matched case-insensitively; a
// semicolon-separated file is retried automatically since that is what
// Spanish-locale spreadsheet exports produce.
func Load(r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("scenario: read input: %w", err)
	}

	rows, err := parseCSV(data, ',')
	if err != nil || len(rows) > 0 && len(rows[0]) == 1 {
		if semiRows, semiErr := parseCSV(data, ';'); semiErr == nil && len(semiRows) > 0 && len(semiRows[0]) > 1 {
			rows, err = semiRows, nil
		}
	}
	if err != nil {
		return Result{}, fmt.Errorf("scenario: parse csv: %w", err)
	}
	if len(rows) == 0 {
		return Result{}, errors.New("scenario: empty file")
	}

	cols := headerIndex(rows[0])
	if _, ok := cols["type"]; !ok {
		return Result{}, errors.New("scenario: missing required column \"type\"")
	}

	var res Result
	for i, row := range rows[1:] {
		line := i + 2 // 1-based, after header
		get := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		switch strings.ToUpper(get("type")) {
		case rowBond:
			bond, warns := parseBond(get, line)
			res.Warnings = append(res.Warnings, warns...)
			if bond.ID == "" {
				res.Skipped++
				res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: BOND row without bond_id skipped", line))
				continue
			}
			res.Bonds = append(res.Bonds, bond)
		case rowMarket:
			res.Events = append(res.Events, domain.MarketEvent{
				Round:        intOr(get("round"), DefaultRound),
				Kind:         domain.EventMarket,
				MagnitudeBps: floatOr(get("delta_tasa_bps"), 0),
			})
		case rowIdios:
			bondID := get("bond_id")
			if bondID == "" {
				res.Skipped++
				res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: IDIOS row without bond_id skipped", line))
				continue
			}
			res.Events = append(res.Events, domain.MarketEvent{
				Round:        intOr(get("round"), DefaultRound),
				Kind:         domain.EventIdiosyncratic,
				BondID:       bondID,
				MagnitudeBps: floatOr(get("impacto_bps"), 0),
			})
		case "":
			res.Skipped++
		default:
			res.Skipped++
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: unknown row type %q skipped", line, get("type")))
		}
	}
	return res, nil
}

func parseBond(get func(string) string, line int) (domain.Bond, []string) {
	var warns []string

	freq := intOr(get("frecuencia_anual"), DefaultFrequency)
	if freq < 1 {
		warns = append(warns, fmt.Sprintf("line %d: coupon frequency %d invalid, using %d", line, freq, DefaultFrequency))
		freq = DefaultFrequency
	}

	name := get("nombre")
	bondID := get("bond_id")
	if name == "" {
		name = bondID
	}

	return domain.Bond{
		ID:              bondID,
		Name:            name,
		FaceValue:       floatOr(get("valor_nominal"), DefaultFaceValue),
		CouponRate:      floatOr(get("tasa_cupon_anual"), DefaultCouponRate),
		CouponFrequency: freq,
		MaturityYears:   floatOr(get("vencimiento_anios"), DefaultMaturityYears),
		SpreadBps:       floatOr(get("spread_bps"), DefaultSpreadBps),
	}, warns
}

func parseCSV(data []byte, sep rune) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

// headerIndex maps lowercased, trimmed column names to their position.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func floatOr(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return def
	}
	return v
}

func intOr(s string, def int) int {
	if s == "" {
		return def
	}
	// Accept "2.0" style values the same way a spreadsheet would emit them.
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return def
	}
	return int(v)
}
