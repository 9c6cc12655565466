package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"channel-sync-service/internal/config"
	"channel-sync-service/internal/models"
	"channel-sync-service/internal/repository"
	"channel-sync-service/internal/secrets"
)

// AccountService handles channel account management. Credentials never touch
// the database; they live in Secret Manager and the account row keeps only
// the reference.
type AccountService struct {
	accountRepo   *repository.AccountRepository
	secretManager *secrets.GCPSecretManager
	config        *config.Config
}

// NewAccountService creates a new account service
func NewAccountService(
	accountRepo *repository.AccountRepository,
	secretManager *secrets.GCPSecretManager,
	cfg *config.Config,
) *AccountService {
	return &AccountService{
		accountRepo:   accountRepo,
		secretManager: secretManager,
		config:        cfg,
	}
}

// CreateAccountRequest contains the data for creating a channel account
type CreateAccountRequest struct {
	AccountName     string                 `json:"accountName" binding:"required"`
	ChannelType     models.ChannelType     `json:"channelType" binding:"required"`
	DisplayName     string                 `json:"displayName"`
	ExternalStoreID string                 `json:"externalStoreId,omitempty"`
	BaseURL         string                 `json:"baseUrl,omitempty"`
	DefaultCurrency string                 `json:"defaultCurrency,omitempty"`
	Config          models.JSONB           `json:"config,omitempty"`
	Credentials     map[string]interface{} `json:"credentials" binding:"required"`
	CreatedBy       string                 `json:"createdBy,omitempty"`
}

// CreateAccount creates a channel account and stores its credentials
func (s *AccountService) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*models.ChannelAccount, error) {
	switch req.ChannelType {
	case models.ChannelMarketplace, models.ChannelStorefront, models.ChannelPOS, models.ChannelWarehouse:
	default:
		return nil, fmt.Errorf("unsupported channel type: %s", req.ChannelType)
	}

	if _, err := s.accountRepo.GetByName(ctx, req.AccountName); err == nil {
		return nil, fmt.Errorf("account %s already exists", req.AccountName)
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.AccountName
	}
	defaultCurrency := req.DefaultCurrency
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}

	account := &models.ChannelAccount{
		ID:              uuid.New(),
		AccountName:     req.AccountName,
		ChannelType:     req.ChannelType,
		DisplayName:     displayName,
		Status:          models.AccountPending,
		IsEnabled:       true,
		ExternalStoreID: req.ExternalStoreID,
		BaseURL:         req.BaseURL,
		DefaultCurrency: defaultCurrency,
		Config:          req.Config,
		CreatedBy:       req.CreatedBy,
	}

	if s.secretManager != nil {
		secretName := s.secretManager.BuildSecretName(string(req.ChannelType), req.AccountName)
		secret := &secrets.ChannelSecret{
			ChannelType: string(req.ChannelType),
			Credentials: req.Credentials,
		}
		if err := s.secretManager.CreateOrUpdateSecret(ctx, secretName, secret); err != nil {
			return nil, fmt.Errorf("failed to store credentials: %w", err)
		}
		account.SecretReference = secretName
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// GetAccount retrieves an account by ID
func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*models.ChannelAccount, error) {
	return s.accountRepo.GetByID(ctx, id)
}

// ListAccounts lists accounts
func (s *AccountService) ListAccounts(ctx context.Context, opts *repository.AccountListOptions) ([]models.ChannelAccount, int64, error) {
	if opts == nil {
		opts = &repository.AccountListOptions{}
	}
	return s.accountRepo.List(ctx, *opts)
}

// UpdateAccountRequest contains updatable account fields
type UpdateAccountRequest struct {
	DisplayName     *string                `json:"displayName,omitempty"`
	IsEnabled       *bool                  `json:"isEnabled,omitempty"`
	BaseURL         *string                `json:"baseUrl,omitempty"`
	DefaultCurrency *string                `json:"defaultCurrency,omitempty"`
	Config          models.JSONB           `json:"config,omitempty"`
	Credentials     map[string]interface{} `json:"credentials,omitempty"`
}

// UpdateAccount updates account metadata and, if provided, its credentials
func (s *AccountService) UpdateAccount(ctx context.Context, id uuid.UUID, req *UpdateAccountRequest) (*models.ChannelAccount, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("account not found: %w", err)
	}

	if req.DisplayName != nil {
		account.DisplayName = *req.DisplayName
	}
	if req.IsEnabled != nil {
		account.IsEnabled = *req.IsEnabled
	}
	if req.BaseURL != nil {
		account.BaseURL = *req.BaseURL
	}
	if req.DefaultCurrency != nil {
		account.DefaultCurrency = *req.DefaultCurrency
	}
	if req.Config != nil {
		account.Config = req.Config
	}

	if len(req.Credentials) > 0 && s.secretManager != nil {
		secretName := account.SecretReference
		if secretName == "" {
			secretName = s.secretManager.BuildSecretName(string(account.ChannelType), account.AccountName)
			account.SecretReference = secretName
		}
		secret := &secrets.ChannelSecret{
			ChannelType: string(account.ChannelType),
			Credentials: req.Credentials,
		}
		if err := s.secretManager.CreateOrUpdateSecret(ctx, secretName, secret); err != nil {
			return nil, fmt.Errorf("failed to update credentials: %w", err)
		}
		// Credentials changed; require a fresh connection test
		account.Status = models.AccountPending
	}

	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	return account, nil
}

// DeleteAccount deletes an account and its stored credentials
func (s *AccountService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("account not found: %w", err)
	}

	if account.SecretReference != "" && s.secretManager != nil {
		if err := s.secretManager.DeleteSecret(ctx, account.SecretReference); err != nil {
			return fmt.Errorf("failed to delete credentials: %w", err)
		}
	}

	return s.accountRepo.Delete(ctx, id)
}

// TestAccount verifies the account's credentials against the upstream API
// and records the outcome on the account row
func (s *AccountService) TestAccount(ctx context.Context, id uuid.UUID) error {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("account not found: %w", err)
	}
	if s.secretManager == nil {
		return fmt.Errorf("secret manager not configured")
	}

	secret, err := s.secretManager.GetSecret(ctx, account.SecretReference)
	if err != nil {
		_ = s.accountRepo.UpdateStatus(ctx, id, models.AccountError, err.Error())
		return err
	}

	client, err := newChannelClient(account.ChannelType, s.config)
	if err != nil {
		return err
	}
	if err := client.Initialize(ctx, secret.Credentials); err != nil {
		_ = s.accountRepo.UpdateStatus(ctx, id, models.AccountError, err.Error())
		return err
	}

	testCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := client.TestConnection(testCtx); err != nil {
		_ = s.accountRepo.UpdateStatus(ctx, id, models.AccountError, err.Error())
		return err
	}

	return s.accountRepo.UpdateStatus(ctx, id, models.AccountConnected, "")
}
