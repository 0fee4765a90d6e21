// Package pricing turns a submission's add-on selections into a total price,
// an editing-credit grant, and the itemized lines sent to checkout.
package pricing

import (
	"errors"
	"fmt"
)

const (
	MaxAdditionalTanks = 4

	EditingUnitPrice    = 1
	TankUnitPrice       = 2
	ExtraPhotoUnitPrice = 1

	// CreditsPerPackage is granted with every editing package, bundled or bought.
	CreditsPerPackage = 3
)

// Product groups lines that are billed with the same catalog price.
type Product string

const (
	ProductEditing    Product = "editing"
	ProductTank       Product = "tank"
	ProductExtraPhoto Product = "extra_photos"
)

var ErrAdditionalTanksOutOfRange = errors.New("additional tanks must be between 0 and 4")

// Selection is the validated set of add-ons chosen at intake.
type Selection struct {
	FirstTank             bool
	StaffEditing          bool
	AdditionalTanks       int
	ExtraPhotos           bool
	ExtraPhotosAdditional bool
}

// Line is one priced item of a Quote.
type Line struct {
	Code        string  `json:"code"`
	Product     Product `json:"product"`
	Description string  `json:"description"`
	UnitPrice   int     `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	Credits     int     `json:"credits"`
}

// Amount is the line's contribution to the total price.
func (l Line) Amount() int {
	return l.UnitPrice * l.Quantity
}

type Quote struct {
	TotalPrice   int    `json:"total_price"`
	TotalCredits int    `json:"total_credits"`
	Lines        []Line `json:"lines"`
}

// IsFree reports whether the submission can skip checkout.
func (q Quote) IsFree() bool {
	return q.TotalPrice == 0
}

// LinePrice sums the amounts of lines matching code.
func (q Quote) LinePrice(code string) int {
	total := 0
	for _, l := range q.Lines {
		if l.Code == code {
			total += l.Amount()
		}
	}
	return total
}

const (
	LineEditing               = "editing_package"
	LineFeatureTank           = "feature_tank"
	LineAdditionalTanks       = "additional_tanks"
	LineExtraPhotos           = "extra_photos"
	LineExtraPhotosAdditional = "extra_photos_additional"
)

// Calculate prices a selection. It is a pure function; the additional-tank
// count is rejected rather than clamped when out of range.
func Calculate(sel Selection) (Quote, error) {
	if sel.AdditionalTanks < 0 || sel.AdditionalTanks > MaxAdditionalTanks {
		return Quote{}, fmt.Errorf("%w: got %d", ErrAdditionalTanksOutOfRange, sel.AdditionalTanks)
	}

	var lines []Line

	if sel.FirstTank && sel.StaffEditing {
		lines = append(lines, Line{
			Code:        LineEditing,
			Product:     ProductEditing,
			Description: "Staff editing package",
			UnitPrice:   EditingUnitPrice,
			Quantity:    1,
			Credits:     CreditsPerPackage,
		})
	}

	if !sel.FirstTank {
		lines = append(lines, Line{
			Code:        LineFeatureTank,
			Product:     ProductTank,
			Description: "Tank feature with editing",
			UnitPrice:   TankUnitPrice,
			Quantity:    1,
			Credits:     CreditsPerPackage,
		})
	}

	if sel.AdditionalTanks > 0 {
		lines = append(lines, Line{
			Code:        LineAdditionalTanks,
			Product:     ProductTank,
			Description: "Additional tank",
			UnitPrice:   TankUnitPrice,
			Quantity:    sel.AdditionalTanks,
			Credits:     CreditsPerPackage * sel.AdditionalTanks,
		})
	}

	if sel.ExtraPhotos {
		lines = append(lines, Line{
			Code:        LineExtraPhotos,
			Product:     ProductExtraPhoto,
			Description: "Extra photos",
			UnitPrice:   ExtraPhotoUnitPrice,
			Quantity:    1,
		})
	}

	if sel.ExtraPhotosAdditional && sel.AdditionalTanks > 0 {
		lines = append(lines, Line{
			Code:        LineExtraPhotosAdditional,
			Product:     ProductExtraPhoto,
			Description: "Extra photos for additional tanks",
			UnitPrice:   ExtraPhotoUnitPrice,
			Quantity:    sel.AdditionalTanks,
		})
	}

	q := Quote{Lines: lines}
	for _, l := range lines {
		q.TotalPrice += l.Amount()
		q.TotalCredits += l.Credits
	}
	return q, nil
}
