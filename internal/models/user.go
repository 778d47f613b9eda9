package models

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

type User struct {
	ID           ObjectID  `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(24)"`
	Username     string    `json:"username" bson:"username" gorm:"uniqueIndex;size:80"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         Role      `json:"role" bson:"role" gorm:"size:20;index"`
	IsActive     bool      `json:"is_active" bson:"is_active"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

func (User) CollectionName() string { return "users" }
func (User) TableName() string      { return "users" }

// ClientPlan is the contracted plan shown on a client's dashboard.
type ClientPlan struct {
	ID        ObjectID   `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(24)"`
	UserID    ObjectID   `json:"user_id" bson:"user_id" gorm:"type:varchar(24);uniqueIndex"`
	PlanName  string     `json:"plan_name" bson:"plan_name"`
	Price     float64    `json:"price" bson:"price"`
	Status    string     `json:"status" bson:"status"`
	RenewsAt  *time.Time `json:"renews_at,omitempty" bson:"renews_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

func (ClientPlan) CollectionName() string { return "client_plans" }
func (ClientPlan) TableName() string      { return "client_plans" }

type ClientStat struct {
	ID        ObjectID  `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(24)"`
	UserID    ObjectID  `json:"user_id" bson:"user_id" gorm:"type:varchar(24);index"`
	Label     string    `json:"label" bson:"label"`
	Value     string    `json:"value" bson:"value"`
	Period    string    `json:"period" bson:"period"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

func (ClientStat) CollectionName() string { return "client_stats" }
func (ClientStat) TableName() string      { return "client_stats" }

type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// Principal is the authenticated caller carried through a request.
type Principal struct {
	UserID   ObjectID `json:"user_id"`
	Username string   `json:"username"`
	Role     Role     `json:"role"`
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

func (p *Principal) IsClient() bool {
	return p != nil && p.Role == RoleClient
}

// Actor returns the audit identity of p at ip.
func (p *Principal) Actor(ip string) Actor {
	if p == nil {
		return Actor{IP: ip}
	}
	return Actor{UserID: p.UserID.String(), IP: ip}
}

type CreateClientRequest struct {
	Username string `json:"username" form:"username" validate:"required,notblank,min=3,max=80"`
	Name     string `json:"name" form:"name" validate:"required,notblank,max=120"`
	Email    string `json:"email" form:"email" validate:"omitempty,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

type ClientPlanRequest struct {
	PlanName string     `json:"plan_name" form:"plan_name" validate:"required,max=50"`
	Price    float64    `json:"price" form:"price" validate:"gte=0"`
	Status   string     `json:"status" form:"status" validate:"max=30"`
	RenewsAt *time.Time `json:"renews_at"`
}

type ClientStatRequest struct {
	Label  string `json:"label" form:"label" validate:"required,max=60"`
	Value  string `json:"value" form:"value" validate:"required,max=60"`
	Period string `json:"period" form:"period" validate:"max=30"`
}

// ClientDashboard is what a logged in client sees on their home page.
type ClientDashboard struct {
	User   *User         `json:"user"`
	Plan   *ClientPlan   `json:"plan,omitempty"`
	Stats  []*ClientStat `json:"stats"`
	Ticket *ChatSession  `json:"ticket,omitempty"`
}
