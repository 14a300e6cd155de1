package news

import (
	"context"

	"github.com/selivandex/supplier-risk/pkg/models"
)

// Provider represents headline source interface
type Provider interface {
	// GetName returns provider name
	GetName() string

	// FetchHeadlines returns headlines mentioning supplier from the last days days
	FetchHeadlines(ctx context.Context, supplier string, days int) ([]models.Headline, error)
}
