package models

import "time"

// Lead is a contact form submission. Personal fields are encrypted at rest.
type Lead struct {
	ID         ObjectID  `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(24)"`
	Name       string    `json:"nome" bson:"name"`
	Email      string    `json:"email" bson:"email"`
	Phone      string    `json:"telefone" bson:"phone"`
	Project    string    `json:"projeto" bson:"project"`
	Attachment string    `json:"anexo,omitempty" bson:"attachment,omitempty"`
	CreatedAt  time.Time `json:"data" bson:"created_at" gorm:"index"`
}

func (Lead) CollectionName() string { return "leads" }
func (Lead) TableName() string      { return "leads" }

type Review struct {
	ID        ObjectID  `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(24)"`
	Name      string    `json:"nome" bson:"name"`
	Company   string    `json:"empresa" bson:"company"`
	Email     string    `json:"email,omitempty" bson:"email"`
	Text      string    `json:"avaliacao" bson:"text"`
	Stars     int       `json:"estrelas" bson:"stars"`
	Visible   bool      `json:"visivel" bson:"visible" gorm:"index"`
	CreatedAt time.Time `json:"data" bson:"created_at"`
}

func (Review) CollectionName() string { return "reviews" }
func (Review) TableName() string      { return "reviews" }

type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

func (p *Page[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// Offset returns the number of rows to skip for a 1-based page.
func Offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

type DayCount struct {
	Day   string `json:"day" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

type LabelCount struct {
	Label string `json:"label" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

type LeadRequest struct {
	Name    string `json:"nome" form:"nome" validate:"required,max=120"`
	Email   string `json:"email" form:"email" validate:"required,email,max=200"`
	Phone   string `json:"telefone" form:"telefone" validate:"required,max=40"`
	Project string `json:"projeto" form:"projeto" validate:"max=4000"`
}

// ReviewRequest accepts stars as a number or a numeric string.
type ReviewRequest struct {
	Name    string `json:"nome" form:"nome" validate:"required,max=120"`
	Company string `json:"empresa" form:"empresa" validate:"max=120"`
	Email   string `json:"email" form:"email" validate:"omitempty,email,max=200"`
	Text    string `json:"avaliacao" form:"avaliacao" validate:"required,max=500"`
	Stars   any    `json:"estrelas" validate:"required"`
}
