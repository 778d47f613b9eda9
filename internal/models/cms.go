package models

import "time"

type PublicPlan struct {
	ID        ObjectID  `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(24)"`
	Name      string    `json:"name" bson:"name" yaml:"name" gorm:"uniqueIndex;size:50"`
	Price     float64   `json:"price" bson:"price" yaml:"price"`
	OldPrice  *float64  `json:"old_price,omitempty" bson:"old_price,omitempty" yaml:"old_price"`
	Features  []string  `json:"features" bson:"features" yaml:"features" gorm:"serializer:json"`
	Highlight bool      `json:"highlight" bson:"highlight" yaml:"highlight"`
	Position  int       `json:"position" bson:"position" yaml:"position"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" yaml:"-"`
}

func (PublicPlan) CollectionName() string { return "public_plans" }
func (PublicPlan) TableName() string      { return "public_plans" }

type PortfolioItem struct {
	ID          ObjectID  `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(24)"`
	Title       string    `json:"title" bson:"title" yaml:"title"`
	Description string    `json:"description" bson:"description" yaml:"description"`
	Image       string    `json:"image" bson:"image" yaml:"image"`
	Link        string    `json:"link,omitempty" bson:"link,omitempty" yaml:"link"`
	Position    int       `json:"position" bson:"position" yaml:"position"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" yaml:"-"`
}

func (PortfolioItem) CollectionName() string { return "portfolio_items" }
func (PortfolioItem) TableName() string      { return "portfolio_items" }

type SiteConfig struct {
	Key       string    `json:"key" bson:"_id" gorm:"primaryKey;size:100"`
	Value     string    `json:"value" bson:"value"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (SiteConfig) CollectionName() string { return "site_config" }
func (SiteConfig) TableName() string      { return "site_config" }

type AuditLog struct {
	ID        ObjectID  `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(24)"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Action    string    `json:"action" bson:"action" gorm:"size:50"`
	Details   string    `json:"details" bson:"details"`
	IPAddress string    `json:"ip_address" bson:"ip_address" gorm:"size:50"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" gorm:"index"`
}

func (AuditLog) CollectionName() string { return "audit_logs" }
func (AuditLog) TableName() string      { return "audit_logs" }

const (
	AuditDeleteTicket = "DELETE_TICKET"
	AuditCloseTicket  = "CLOSE_TICKET"
	AuditDeleteLead   = "DELETE_LEAD"
	AuditDeleteReview = "DELETE_REVIEW"
	AuditToggleReview = "TOGGLE_REVIEW"
	AuditCreateClient = "CREATE_CLIENT"
	AuditDeleteClient = "DELETE_CLIENT"
	AuditUpdatePlan   = "UPDATE_PLAN"
	AuditDeletePlan   = "DELETE_PLAN"
	AuditUpdateConfig = "UPDATE_CONFIG"
	AuditPortfolio    = "PORTFOLIO"
	AuditRetryEmail   = "RETRY_EMAIL"
	AuditLogin        = "LOGIN"
)

// Actor identifies who performed an audited action.
type Actor struct {
	UserID string
	IP     string
}

type Visit struct {
	ID        ObjectID  `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(24)"`
	Page      string    `json:"page" bson:"page" gorm:"size:50"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

func (Visit) CollectionName() string { return "visits" }
func (Visit) TableName() string      { return "visits" }

type PublicPlanRequest struct {
	Name      string   `json:"name" form:"name" validate:"required,notblank,max=50"`
	Price     float64  `json:"price" form:"price" validate:"gte=0"`
	OldPrice  *float64 `json:"old_price" validate:"omitempty,gte=0"`
	Features  []string `json:"features" validate:"max=30,dive,max=200"`
	Highlight bool     `json:"highlight" form:"highlight"`
	Position  int      `json:"position" form:"position"`
}

type PortfolioRequest struct {
	Title       string `json:"title" form:"title" validate:"required,notblank,max=120"`
	Description string `json:"description" form:"description" validate:"max=1000"`
	Link        string `json:"link" form:"link" validate:"omitempty,url"`
	Position    int    `json:"position" form:"position"`
}

// SiteContent is everything the public pages render from the CMS.
type SiteContent struct {
	Plans     []*PublicPlan     `json:"plans"`
	Portfolio []*PortfolioItem  `json:"portfolio"`
	Config    map[string]string `json:"config"`
	Reviews   []*Review         `json:"reviews"`
}

// AdminDashboard backs the back-office home page.
type AdminDashboard struct {
	Leads        int64        `json:"leads"`
	Orders       int64        `json:"orders"`
	Reviews      int64        `json:"reviews"`
	OpenTickets  int64        `json:"open_tickets"`
	Visits       int64        `json:"visits"`
	FailedEmails int64        `json:"failed_emails"`
	LeadsPerDay  []DayCount   `json:"leads_per_day"`
	SalesPerPlan []LabelCount `json:"sales_per_plan"`
}
