package event

// Row is the flat relational projection of one raw record and its outcome.
// It lives only between the transformer and the loader.
type Row struct {
	RawID  string
	Source string

	Title       string
	Description string

	AddressStreet  string
	AddressName    string
	Zipcode        string
	Arrondissement string
	CityName       string

	Latitude       *float64
	Longitude      *float64
	DistanceCenter *float64
	Geocoded       bool

	Breakdown

	PriceType          string
	PriceDetail        string
	IsFree             bool
	AccessibilityScore *float64

	ContactURL   string
	ContactPhone string
	ContactEmail string

	MainCategory       string
	SubCategory        string
	CategoryConfidence float64
}
