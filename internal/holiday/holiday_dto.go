package holiday

type PublicHolidayResponse struct {
	Name string `json:"name"`
	Date string `json:"date"`
}
