package models

// IntakeForm is the raw form-encoded intake body. Everything arrives as text;
// booleans use the checkbox convention (true, 1, yes, on).
type IntakeForm struct {
	Name                  string   `form:"name"`
	Email                 string   `form:"email"`
	TankName              string   `form:"tank_name"`
	TankSize              string   `form:"tank_size"`
	Environment           string   `form:"environment"`
	YouTube               string   `form:"youtube"`
	Instagram             string   `form:"instagram"`
	TikTok                string   `form:"tiktok"`
	TextSource            string   `form:"text_source"`
	IsFirstTank           string   `form:"is_first_tank"`
	AdditionalTanks       string   `form:"additional_tanks"`
	ExtraPhotos           string   `form:"extra_photos"`
	ExtraPhotosAdditional string   `form:"extra_photos_additional"`
	NewsletterOptIn       string   `form:"newsletter_opt_in"`
	Photos                []string `form:"photos"`

	NewTankConfirm    string `form:"new_tank_confirm"`
	LicenseConfirm    string `form:"license_confirm"`
	GuidelinesConfirm string `form:"guidelines_confirm"`
	PermissionContact string `form:"permission_contact"`
	PricingConfirm    string `form:"pricing_confirm"`
}

// IntakeRequest is the typed, validated intake.
type IntakeRequest struct {
	Name                  string          `validate:"required,max=200"`
	Email                 string          `validate:"required,email,max=320"`
	TankName              string          `validate:"required,max=200"`
	TankSize              float64         `validate:"gt=0"`
	Environment           Environment     `validate:"required,oneof=planted unplanted"`
	NarrativeSource       NarrativeSource `validate:"required,oneof=self staff"`
	FirstTank             bool
	AdditionalTanks       int `validate:"min=0,max=4"`
	ExtraPhotos           bool
	ExtraPhotosAdditional bool
	NewsletterOptIn       bool
	YouTube               string   `validate:"omitempty,max=500"`
	Instagram             string   `validate:"omitempty,max=500"`
	TikTok                string   `validate:"omitempty,max=500"`
	Photos                []string `validate:"max=20,dive,max=2048"`

	NewTankConfirm    bool `validate:"eq=true"`
	LicenseConfirm    bool `validate:"eq=true"`
	GuidelinesConfirm bool `validate:"eq=true"`
	PermissionContact bool `validate:"eq=true"`
	PricingConfirm    bool
}

type AdminLoginRequest struct {
	Password string `json:"password" validate:"required"`
}

type StatusUpdateRequest struct {
	Status       SubmissionStatus `json:"status" validate:"required"`
	PublishedURL *string          `json:"published_url" validate:"omitempty,url"`
}

type UseCreditsRequest struct {
	Count int `json:"count" validate:"min=1,max=10"`
}
