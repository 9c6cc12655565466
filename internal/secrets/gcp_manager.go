package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// ChannelSecret represents the structure of secrets stored in GCP
type ChannelSecret struct {
	ChannelType      string                 `json:"channel_type"`
	Credentials      map[string]interface{} `json:"credentials"`
	AdditionalConfig map[string]interface{} `json:"additional_config,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// MarketplaceCredentials represents marketplace reporting API credentials
type MarketplaceCredentials struct {
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret"`
	RefreshToken   string `json:"refresh_token"`
	SellerID       string `json:"seller_id"`
	Region         string `json:"region"` // na, eu, fe
	TokenExpiresAt string `json:"token_expires_at,omitempty"`
}

// StorefrontCredentials represents storefront Admin API credentials
type StorefrontCredentials struct {
	Store       string `json:"store"`
	AccessToken string `json:"access_token"`
}

// POSCredentials represents point-of-sale API credentials
type POSCredentials struct {
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url"`
	RegisterID string `json:"register_id,omitempty"`
}

// WarehouseCredentials represents warehouse API credentials
type WarehouseCredentials struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

// cacheEntry represents a cached secret with expiration
type cacheEntry struct {
	secret    *ChannelSecret
	expiresAt time.Time
}

// GCPSecretManager manages secrets in Google Cloud Secret Manager
type GCPSecretManager struct {
	client    *secretmanager.Client
	projectID string
	cache     map[string]*cacheEntry
	cacheMu   sync.RWMutex
	cacheTTL  time.Duration
}

// NewGCPSecretManager creates a new GCP Secret Manager client
func NewGCPSecretManager(ctx context.Context, projectID string) (*GCPSecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &GCPSecretManager{
		client:    client,
		projectID: projectID,
		cache:     make(map[string]*cacheEntry),
		cacheTTL:  5 * time.Minute,
	}, nil
}

// Close closes the Secret Manager client
func (sm *GCPSecretManager) Close() error {
	if sm.client != nil {
		return sm.client.Close()
	}
	return nil
}

// BuildSecretName constructs the secret name for a channel account
// Format: projects/{project}/secrets/{channel_type}-{account_name}
func (sm *GCPSecretManager) BuildSecretName(channelType, accountName string) string {
	secretID := fmt.Sprintf("%s-%s",
		sanitizeSecretID(strings.ToLower(channelType)),
		sanitizeSecretID(accountName),
	)
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, secretID)
}

// GetSecret retrieves a secret from GCP Secret Manager
func (sm *GCPSecretManager) GetSecret(ctx context.Context, secretName string) (*ChannelSecret, error) {
	// Check cache first
	sm.cacheMu.RLock()
	if entry, ok := sm.cache[secretName]; ok && time.Now().Before(entry.expiresAt) {
		sm.cacheMu.RUnlock()
		return entry.secret, nil
	}
	sm.cacheMu.RUnlock()

	// Fetch from GCP
	accessRequest := &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName + "/versions/latest",
	}

	result, err := sm.client.AccessSecretVersion(ctx, accessRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to access secret: %w", err)
	}

	var secret ChannelSecret
	if err := json.Unmarshal(result.Payload.Data, &secret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secret: %w", err)
	}

	// Cache the result
	sm.cacheMu.Lock()
	sm.cache[secretName] = &cacheEntry{
		secret:    &secret,
		expiresAt: time.Now().Add(sm.cacheTTL),
	}
	sm.cacheMu.Unlock()

	return &secret, nil
}

// CreateOrUpdateSecret creates or updates a secret in GCP Secret Manager
func (sm *GCPSecretManager) CreateOrUpdateSecret(ctx context.Context, secretName string, secret *ChannelSecret) error {
	secret.UpdatedAt = time.Now()
	if secret.CreatedAt.IsZero() {
		secret.CreatedAt = time.Now()
	}

	data, err := json.Marshal(secret)
	if err != nil {
		return fmt.Errorf("failed to marshal secret: %w", err)
	}

	secretID := extractSecretID(secretName)

	// Try to create the secret first
	createRequest := &secretmanagerpb.CreateSecretRequest{
		Parent:   fmt.Sprintf("projects/%s", sm.projectID),
		SecretId: secretID,
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	}

	_, err = sm.client.CreateSecret(ctx, createRequest)
	if err != nil && !isAlreadyExistsError(err) {
		return fmt.Errorf("failed to create secret: %w", err)
	}

	// Add a new version
	addVersionRequest := &secretmanagerpb.AddSecretVersionRequest{
		Parent: secretName,
		Payload: &secretmanagerpb.SecretPayload{
			Data: data,
		},
	}

	_, err = sm.client.AddSecretVersion(ctx, addVersionRequest)
	if err != nil {
		return fmt.Errorf("failed to add secret version: %w", err)
	}

	// Invalidate cache
	sm.cacheMu.Lock()
	delete(sm.cache, secretName)
	sm.cacheMu.Unlock()

	return nil
}

// DeleteSecret deletes a secret from GCP Secret Manager
func (sm *GCPSecretManager) DeleteSecret(ctx context.Context, secretName string) error {
	deleteRequest := &secretmanagerpb.DeleteSecretRequest{
		Name: secretName,
	}

	if err := sm.client.DeleteSecret(ctx, deleteRequest); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}

	// Remove from cache
	sm.cacheMu.Lock()
	delete(sm.cache, secretName)
	sm.cacheMu.Unlock()

	return nil
}

// InvalidateCache removes a secret from the cache
func (sm *GCPSecretManager) InvalidateCache(secretName string) {
	sm.cacheMu.Lock()
	delete(sm.cache, secretName)
	sm.cacheMu.Unlock()
}

// ClearCache removes all secrets from the cache
func (sm *GCPSecretManager) ClearCache() {
	sm.cacheMu.Lock()
	sm.cache = make(map[string]*cacheEntry)
	sm.cacheMu.Unlock()
}

// GetMarketplaceCredentials parses marketplace credentials from a ChannelSecret
func (sm *GCPSecretManager) GetMarketplaceCredentials(secret *ChannelSecret) (*MarketplaceCredentials, error) {
	if secret.ChannelType != "MARKETPLACE" {
		return nil, fmt.Errorf("invalid channel type: expected MARKETPLACE, got %s", secret.ChannelType)
	}

	data, err := json.Marshal(secret.Credentials)
	if err != nil {
		return nil, err
	}

	var creds MarketplaceCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// GetStorefrontCredentials parses storefront credentials from a ChannelSecret
func (sm *GCPSecretManager) GetStorefrontCredentials(secret *ChannelSecret) (*StorefrontCredentials, error) {
	if secret.ChannelType != "STOREFRONT" {
		return nil, fmt.Errorf("invalid channel type: expected STOREFRONT, got %s", secret.ChannelType)
	}

	data, err := json.Marshal(secret.Credentials)
	if err != nil {
		return nil, err
	}

	var creds StorefrontCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// GetPOSCredentials parses point-of-sale credentials from a ChannelSecret
func (sm *GCPSecretManager) GetPOSCredentials(secret *ChannelSecret) (*POSCredentials, error) {
	if secret.ChannelType != "POS" {
		return nil, fmt.Errorf("invalid channel type: expected POS, got %s", secret.ChannelType)
	}

	data, err := json.Marshal(secret.Credentials)
	if err != nil {
		return nil, err
	}

	var creds POSCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// GetWarehouseCredentials parses warehouse credentials from a ChannelSecret
func (sm *GCPSecretManager) GetWarehouseCredentials(secret *ChannelSecret) (*WarehouseCredentials, error) {
	if secret.ChannelType != "WAREHOUSE" {
		return nil, fmt.Errorf("invalid channel type: expected WAREHOUSE, got %s", secret.ChannelType)
	}

	data, err := json.Marshal(secret.Credentials)
	if err != nil {
		return nil, err
	}

	var creds WarehouseCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// sanitizeSecretID removes or replaces invalid characters for GCP secret IDs
// Secret IDs can only contain alphanumeric characters, hyphens, and underscores
func sanitizeSecretID(input string) string {
	var result strings.Builder
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		} else {
			result.WriteRune('-')
		}
	}
	return result.String()
}

// extractSecretID extracts the secret ID from the full secret name
func extractSecretID(secretName string) string {
	parts := strings.Split(secretName, "/")
	if len(parts) >= 4 {
		return parts[3]
	}
	return secretName
}

// isAlreadyExistsError checks if the error indicates the resource already exists
func isAlreadyExistsError(err error) bool {
	return strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already exists")
}
