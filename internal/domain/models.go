package domain

import (
	"time"
)

// ==================== SETTINGS ====================

type SystemSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Key      string `gorm:"size:255;uniqueIndex;not null" json:"key"`
	Value    string `gorm:"type:text" json:"value"`
	Type     string `gorm:"size:50" json:"type"`
	Category string `gorm:"size:100;index" json:"category"`
}

// ==================== MANAGED CONTENT ====================
//
// Record kinds the admin pipeline may read and write through the tool layer.
// Kinds are addressed as "<app>.<model>".

type SiteSettings struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	SiteTitle       string `gorm:"size:100;not null" json:"site_title"`
	MetaDescription string `gorm:"type:text" json:"meta_description"`
	FooterText      string `gorm:"type:text" json:"footer_text"`
	CopyrightText   string `gorm:"size:200" json:"copyright_text"`
}

type CommonPhrase struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Key         string `gorm:"size:50;uniqueIndex;not null" json:"key"`
	Text        string `gorm:"size:255;not null" json:"text"`
	Description string `gorm:"size:255" json:"description"`
}

type HeroSection struct {
	ID                  uint   `gorm:"primaryKey" json:"id"`
	BadgeLocation       string `gorm:"size:100" json:"badge_location"`
	BadgeWorkHours      string `gorm:"size:100" json:"badge_work_hours"`
	BadgeLicense        string `gorm:"size:100" json:"badge_license"`
	Title               string `gorm:"size:255" json:"title"`
	LeadText            string `gorm:"type:text" json:"lead_text"`
	ButtonPrimaryText   string `gorm:"size:100" json:"button_primary_text"`
	ButtonSecondaryText string `gorm:"size:100" json:"button_secondary_text"`
}

type StatItem struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Number string `gorm:"size:20;not null" json:"number"`
	Label  string `gorm:"size:100;not null" json:"label"`
	Order  int    `json:"order"`
}

type ServiceCategory struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Slug        string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Icon        string `gorm:"size:50" json:"icon"`
	Order       int    `json:"order"`
	IsActive    bool   `json:"is_active"`
}

type Service struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string  `gorm:"size:200;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Price       float64 `gorm:"type:numeric(10,2);not null" json:"price"`
	PriceNote   string  `gorm:"size:100" json:"price_note"`
	Duration    string  `gorm:"size:50" json:"duration"`
	IsPopular   bool    `json:"is_popular"`
	IsActive    bool    `json:"is_active"`
	Order       int     `json:"order"`

	// Relationships
	CategoryID uint             `gorm:"not null;index" json:"category_id"`
	Category   *ServiceCategory `gorm:"constraint:OnDelete:CASCADE" json:"category,omitempty"`
}

type News struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Image       string    `gorm:"size:255" json:"image"`
	IsPublished bool      `json:"is_published"`
}

type Review struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	AuthorName  string    `gorm:"size:100;not null" json:"author_name"`
	PetName     string    `gorm:"size:100" json:"pet_name"`
	PetType     string    `gorm:"size:50" json:"pet_type"`
	Rating      int       `gorm:"not null" json:"rating"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	Photo       string    `gorm:"size:255" json:"photo"`
	IsPublished bool      `json:"is_published"`
}

type AboutContent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Image       string    `gorm:"size:255" json:"image"`
	IsActive    bool      `json:"is_active"`
}

type Veterinarian struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:100;not null" json:"name"`
	Position string `gorm:"size:100" json:"position"`
	Bio      string `gorm:"type:text" json:"bio"`
	Photo    string `gorm:"size:255" json:"photo"`
	Order    int    `json:"order"`
	IsActive bool   `json:"is_active"`
}

type ContactInfo struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ClinicName   string    `gorm:"size:100;not null" json:"clinic_name"`
	Address      string    `gorm:"size:200" json:"address"`
	Phone        string    `gorm:"size:20" json:"phone"`
	Email        string    `gorm:"size:254" json:"email"`
	WorkingHours string    `gorm:"size:200" json:"working_hours"`
	MapEmbedCode string    `gorm:"type:text" json:"map_embed_code"`
}

type ContactSubmission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:254;not null" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Subject   string    `gorm:"size:200" json:"subject"`
	Message   string    `gorm:"type:text;not null" json:"message"`
}

// ContentKind binds a kind name to the gorm model that stores it.
type ContentKind struct {
	Name  string
	Model interface{}
}

// ContentKinds lists every kind exposed to the admin pipeline.
func ContentKinds() []ContentKind {
	return []ContentKind{
		{Name: "core.sitesettings", Model: &SiteSettings{}},
		{Name: "core.commonphrase", Model: &CommonPhrase{}},
		{Name: "core.herosection", Model: &HeroSection{}},
		{Name: "core.statitem", Model: &StatItem{}},
		{Name: "services.servicecategory", Model: &ServiceCategory{}},
		{Name: "services.service", Model: &Service{}},
		{Name: "news.news", Model: &News{}},
		{Name: "reviews.review", Model: &Review{}},
		{Name: "about.aboutcontent", Model: &AboutContent{}},
		{Name: "about.veterinarian", Model: &Veterinarian{}},
		{Name: "contacts.contactinfo", Model: &ContactInfo{}},
		{Name: "contacts.contactsubmission", Model: &ContactSubmission{}},
	}
}

// ==================== OBJECT STORE VIEWS ====================

// Record is one stored object with every column rendered as text.
type Record map[string]string

// FieldSchema describes one user-settable field of a kind.
type FieldSchema struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Required   bool   `json:"required,omitempty"`
	References string `json:"references,omitempty"`
}

// KindSchema describes a kind's user-settable fields.
type KindSchema struct {
	Kind   string        `json:"kind"`
	Fields []FieldSchema `json:"fields"`
}
