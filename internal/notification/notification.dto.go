package notification

// UpdateSettingsRequest fields left nil fall back to the defaults.
type UpdateSettingsRequest struct {
	Enabled        *bool `json:"enabled,omitempty"`
	RemindTime     *int  `json:"remind_time,omitempty"`
	TimezoneOffset *int  `json:"timezone_offset,omitempty"`
}

type RegisterDeviceRequest struct {
	Token    string   `json:"token" validate:"required"`
	Platform Platform `json:"platform" validate:"required,oneof=ios android web"`
}
