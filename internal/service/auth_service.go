package service

import (
	"context"
	"strings"
	"time"

	"pos-service/internal/apperror"
	"pos-service/internal/auth"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// AuthService logs operators in and resolves session tokens
type AuthService struct {
	operators OperatorRepository
	tokens    *auth.TokenManager
	logger    *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(operators OperatorRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		operators: operators,
		tokens:    tokens,
		logger:    util.GetLogger(),
	}
}

// LoginRequest represents operator credentials
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the session token
type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Operator  *models.Operator `json:"operator"`
}

// Login checks credentials and issues a token. Unknown users and wrong
// passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	req.Username = strings.TrimSpace(req.Username)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	op, err := s.operators.GetOperatorByUsername(ctx, req.Username)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			util.LoginAttemptsTotal.WithLabelValues("failed").Inc()
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, util.RecordError(span, err)
	}
	if !auth.CheckPassword(op.PasswordHash, req.Password) {
		util.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		s.logger.Warn("Login failed", zap.String("username", req.Username))
		return nil, apperror.ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(op.ID, op.Username, op.Role)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	util.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.logger.Info("Operator logged in", zap.Int64("operator_id", op.ID), zap.String("role", op.Role))
	return &LoginResponse{Token: token, ExpiresAt: expires, Operator: op}, nil
}

// Authenticate resolves a bearer token to a current operator
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Operator, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.ErrUnauthorized.WithMessage("invalid or expired token")
	}
	op, err := s.operators.GetOperatorByID(ctx, claims.OperatorID)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return nil, apperror.ErrUnauthorized.WithMessage("operator no longer exists")
		}
		return nil, err
	}
	return op, nil
}
