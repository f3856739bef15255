package model

type Brand struct {
	ID   string `gorm:"column:id;type:text;primaryKey"`
	Code string `gorm:"column:code;type:text;not null"`
	Name string `gorm:"column:name;type:text;not null"`
}

func (Brand) TableName() string {
	return "brands"
}

type Market struct {
	ID   string `gorm:"column:id;type:text;primaryKey"`
	Code string `gorm:"column:code;type:text;not null"`
	Name string `gorm:"column:name;type:text;not null"`
	// Geos is a comma separated list of approved geo codes.
	Geos string `gorm:"column:geos;type:text;not null"`
}

func (Market) TableName() string {
	return "markets"
}

type Channel struct {
	ID   string `gorm:"column:id;type:text;primaryKey"`
	Code string `gorm:"column:code;type:text;not null"`
	Name string `gorm:"column:name;type:text;not null"`
}

func (Channel) TableName() string {
	return "channels"
}

type Audience struct {
	ID   string `gorm:"column:id;type:text;primaryKey"`
	Code string `gorm:"column:code;type:text;not null"`
	Name string `gorm:"column:name;type:text;not null"`
}

func (Audience) TableName() string {
	return "audiences"
}

type TicketType struct {
	ID   string `gorm:"column:id;type:text;primaryKey"`
	Name string `gorm:"column:name;type:text;not null"`
}

func (TicketType) TableName() string {
	return "ticket_types"
}

type User struct {
	ID    string `gorm:"column:id;type:text;primaryKey"`
	Name  string `gorm:"column:name;type:text;not null"`
	Email string `gorm:"column:email;type:text;not null"`
}

func (User) TableName() string {
	return "users"
}

type Title struct {
	ID          string  `gorm:"column:id;type:text;primaryKey"`
	Name        string  `gorm:"column:name;type:text;not null"`
	Slug        string  `gorm:"column:slug;type:text;not null"`
	BrandID     string  `gorm:"column:brand_id;type:text;not null;index"`
	ReleaseDate *string `gorm:"column:release_date;type:text"`
}

func (Title) TableName() string {
	return "titles"
}
