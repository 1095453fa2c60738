package model

type Event struct {
	ID          uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	RawID       string  `gorm:"column:raw_id;type:varchar(64);not null;uniqueIndex"`
	Source      string  `gorm:"column:source;type:varchar(100);not null"`
	Title       *string `gorm:"column:title;type:varchar(500)"`
	Description *string `gorm:"column:description;type:text"`
	CityID      uint64  `gorm:"column:city_id;not null;index"`

	AddressStreet  *string `gorm:"column:address_street;type:varchar(255)"`
	AddressName    *string `gorm:"column:address_name;type:varchar(255)"`
	Zipcode        *string `gorm:"column:zipcode;type:varchar(10)"`
	Arrondissement *string `gorm:"column:arrondissement;type:varchar(10);index"`

	Latitude       *float64 `gorm:"column:latitude"`
	Longitude      *float64 `gorm:"column:longitude"`
	DistanceCenter *float64 `gorm:"column:distance_center"`
	Geocoded       bool     `gorm:"column:geocoded;not null;default:false"`

	EventDate     *string `gorm:"column:event_date;type:varchar(10);index"`
	EventDatetime *string `gorm:"column:event_datetime;type:varchar(32)"`
	Year          *int    `gorm:"column:year"`
	Month         *int    `gorm:"column:month"`
	Day           *int    `gorm:"column:day"`
	DayOfWeek     *int    `gorm:"column:day_of_week"`
	DayOfWeekName *string `gorm:"column:day_of_week_name;type:varchar(20)"`
	MonthName     *string `gorm:"column:month_name;type:varchar(20)"`
	Season        *string `gorm:"column:season;type:varchar(20);index"`
	TimePeriod    *string `gorm:"column:time_period;type:varchar(20)"`
	IsWeekend     bool    `gorm:"column:is_weekend;not null;default:false"`
	IsMultiDay    bool    `gorm:"column:is_multi_day;not null;default:false"`
	DurationDays  *int    `gorm:"column:duration_days"`

	PriceType          *string  `gorm:"column:price_type;type:varchar(50)"`
	PriceDetail        *string  `gorm:"column:price_detail;type:varchar(255)"`
	IsFree             bool     `gorm:"column:is_free;not null;default:false"`
	AccessibilityScore *float64 `gorm:"column:accessibility_score"`

	ContactURL   *string `gorm:"column:contact_url;type:varchar(500)"`
	ContactPhone *string `gorm:"column:contact_phone;type:varchar(50)"`
	ContactEmail *string `gorm:"column:contact_email;type:varchar(255)"`

	CreatedAt string `gorm:"column:created_at;type:varchar(40);not null"`
}

func (Event) TableName() string {
	return "events"
}
