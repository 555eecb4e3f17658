package domain

// Bond is the static description of a tradable bond. It is immutable after
// scenario load; identifiers are unique within a game.
type Bond struct {
	ID              string  `json:"bond_id"`
	Name            string  `json:"name"`
	FaceValue       float64 `json:"face_value"`
	CouponRate      float64 `json:"coupon_rate"`      // annual rate, e.g. 0.08
	CouponFrequency int     `json:"coupon_frequency"` // payments per year, >= 1
	MaturityYears   float64 `json:"maturity_years"`
	SpreadBps       float64 `json:"spread_bps"` // base credit spread
}
