package entities

import "time"

// Status is the health of a parameter for a month
type Status int

const (
	NoData Status = iota
	Good
	Bad
)

func (s Status) String() string {
	switch s {
	case Good:
		return "Good"
	case Bad:
		return "Bad"
	default:
		return "NoData"
	}
}

// ParseStatus is the inverse of String. Unknown names map to NoData.
func ParseStatus(s string) Status {
	switch s {
	case "Good":
		return Good
	case "Bad":
		return Bad
	}
	return NoData
}

// MonthlyCell holds the representative value of one parameter for one calendar month
type MonthlyCell struct {
	Parameter Parameter
	Month     time.Month
	Value     float64
	HasValue  bool
	Status    Status
}

// MonthlyGrid is the month by parameter overview, one row per tracked parameter
type MonthlyGrid struct {
	Rows []MonthlyRow
}

// MonthlyRow is one parameter across January..December
type MonthlyRow struct {
	Parameter Parameter
	Cells     [12]MonthlyCell
}

// Cell returns the cell for a parameter and month. ok is false for untracked parameters.
func (g MonthlyGrid) Cell(p Parameter, month time.Month) (MonthlyCell, bool) {
	if month < time.January || month > time.December {
		return MonthlyCell{}, false
	}
	for _, row := range g.Rows {
		if row.Parameter == p {
			return row.Cells[month-1], true
		}
	}
	return MonthlyCell{}, false
}

// Impairments lists the Bad cells in grid order
func (g MonthlyGrid) Impairments() []MonthlyCell {
	var bad []MonthlyCell
	for _, row := range g.Rows {
		for _, c := range row.Cells {
			if c.Status == Bad {
				bad = append(bad, c)
			}
		}
	}
	return bad
}
