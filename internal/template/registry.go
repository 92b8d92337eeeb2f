// Package template manages outbound message templates and their approval
// state machine (pending -> approved | rejected).
package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"whatsapp-core/internal/models"

	"gorm.io/gorm"
)

var (
	ErrDuplicateName = errors.New("template name already exists")
	ErrNotFound      = errors.New("template not found")
	// ErrTemplateFinalized is returned when approving or rejecting a template
	// that already left the pending state.
	ErrTemplateFinalized = errors.New("template status already finalized")
)

var validCategories = map[string]bool{
	"service":        true,
	"marketing":      true,
	"authentication": true,
}

type Registry struct {
	DB *gorm.DB
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{DB: db}
}

type CreateInput struct {
	Name      string   `json:"name" binding:"required"`
	Locale    string   `json:"locale" binding:"required"`
	Category  string   `json:"category" binding:"required"`
	Body      string   `json:"body" binding:"required"`
	Variables []string `json:"variables"`
}

func (r *Registry) Create(ctx context.Context, in CreateInput) (*models.Template, error) {
	if !validCategories[in.Category] {
		return nil, fmt.Errorf("invalid category %q", in.Category)
	}

	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Template{}).Where("name = ?", in.Name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check template name: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateName
	}

	variables := "[]"
	if len(in.Variables) > 0 {
		b, err := json.Marshal(in.Variables)
		if err != nil {
			return nil, fmt.Errorf("encode variables: %w", err)
		}
		variables = string(b)
	}

	tmpl := models.Template{
		Name:      in.Name,
		Locale:    in.Locale,
		Category:  in.Category,
		Body:      in.Body,
		Variables: variables,
		Status:    models.TemplateStatusPending,
	}
	if err := r.DB.WithContext(ctx).Create(&tmpl).Error; err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return &tmpl, nil
}

// List returns templates newest-first. Locale and status filters compose
// independently; empty values mean no filter.
func (r *Registry) List(ctx context.Context, locale, status string) ([]models.Template, error) {
	q := r.DB.WithContext(ctx).Model(&models.Template{})
	if locale != "" {
		q = q.Where("locale = ?", locale)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var templates []models.Template
	if err := q.Order("id DESC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	if templates == nil {
		templates = []models.Template{}
	}
	return templates, nil
}

func (r *Registry) GetByName(ctx context.Context, name string) (*models.Template, error) {
	var tmpl models.Template
	err := r.DB.WithContext(ctx).First(&tmpl, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template %s: %w", name, err)
	}
	return &tmpl, nil
}

func (r *Registry) Approve(ctx context.Context, id uint) (*models.Template, error) {
	return r.transition(ctx, id, models.TemplateStatusApproved)
}

func (r *Registry) Reject(ctx context.Context, id uint) (*models.Template, error) {
	return r.transition(ctx, id, models.TemplateStatusRejected)
}

func (r *Registry) transition(ctx context.Context, id uint, status string) (*models.Template, error) {
	var tmpl models.Template
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&tmpl, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if tmpl.Status != models.TemplateStatusPending {
			return ErrTemplateFinalized
		}
		tmpl.Status = status
		return tx.Model(&tmpl).Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}
