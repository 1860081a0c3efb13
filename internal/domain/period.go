package domain

import "fmt"

// Period identifies one monthly statement (fatura) by the month it closes in.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Index maps the period onto a linear month counter (year*12 + month).
func (p Period) Index() int {
	return p.Year*12 + p.Month
}

func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Month: 1, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

func (p Period) Prev() Period {
	if p.Month == 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

func (p Period) String() string {
	return fmt.Sprintf("%02d/%d", p.Month, p.Year)
}
