// internal/domain/models/category.go
package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultCategoryName is shown when a category carries no usable name.
const DefaultCategoryName = "Danh mục"

// Category groups tours. Ten is the Vietnamese alias editors fill in
// alongside the canonical Name; either may be blank.
type Category struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DocumentID  string             `bson:"document_id" json:"documentId"`
	Slug        string             `bson:"slug" json:"slug"`
	Name        string             `bson:"name" json:"name"`
	Ten         string             `bson:"ten,omitempty" json:"ten,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Icon        string             `bson:"icon,omitempty" json:"icon,omitempty"`
	Image       *Media             `bson:"image,omitempty" json:"image,omitempty"`
	Order       int                `bson:"order" json:"order"`
}

// DisplayName resolves the name shown to visitors: the localized alias,
// then the canonical name, then DefaultCategoryName.
func (c *Category) DisplayName() string {
	if s := strings.TrimSpace(c.Ten); s != "" {
		return s
	}
	if s := strings.TrimSpace(c.Name); s != "" {
		return s
	}
	return DefaultCategoryName
}

// Ref returns the denormalized link stored on tours.
func (c *Category) Ref() CategoryRef {
	return CategoryRef{
		DocumentID: c.DocumentID,
		Slug:       c.Slug,
		Name:       c.DisplayName(),
	}
}
