package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"go.uber.org/zap"

	"github.com/avereux/salon-auth/internal/core/domain"
	"github.com/avereux/salon-auth/internal/core/port"
	"github.com/avereux/salon-auth/internal/infra/config"
	"github.com/avereux/salon-auth/internal/infra/logger"
	"github.com/avereux/salon-auth/internal/repository"
)

var (
	// ErrNotAdmin indicates the acting user lacks the admin role.
	ErrNotAdmin = errors.New("admin role required")
	// ErrInvalidIPAddress indicates the supplied string is not a valid IPv4/IPv6 address.
	ErrInvalidIPAddress = errors.New("invalid ip address")
	// ErrIPAlreadyTrusted indicates the address is already on the trusted list.
	ErrIPAlreadyTrusted = errors.New("ip address already trusted")
	// ErrMaxTrustedIPs indicates the trusted list is at capacity.
	ErrMaxTrustedIPs = errors.New("maximum trusted ip addresses reached")
	// ErrIPNotOnList indicates a removal target is absent from the trusted list.
	ErrIPNotOnList = errors.New("ip address not on trusted list")
)

// TrustedIPService manages per-user trusted IP allow-lists. Mutations are
// restricted to administrators.
type TrustedIPService struct {
	cfg    *config.AppConfig
	users  port.UserRepository
	logger *zap.Logger
}

// NewTrustedIPService constructs a TrustedIPService.
func NewTrustedIPService(cfg *config.AppConfig, users port.UserRepository, log *zap.Logger) *TrustedIPService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TrustedIPService{cfg: cfg, users: users, logger: log}
}

// Add appends an address to the target user's trusted list.
func (s *TrustedIPService) Add(ctx context.Context, actorID, targetUserID, ip string) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	normalized, err := normalizeIP(ip)
	if err != nil {
		return err
	}

	user, err := s.getUser(ctx, targetUserID)
	if err != nil {
		return err
	}

	if user.HasTrustedIP(normalized) {
		return ErrIPAlreadyTrusted
	}

	max := s.cfg.TrustedIP.MaxEntries
	if max <= 0 {
		max = 10
	}
	if len(user.TrustedIPs) >= max {
		return ErrMaxTrustedIPs
	}

	user.TrustedIPs = append(user.TrustedIPs, normalized)
	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("trusted ip added",
		zap.String("user_id", user.ID),
		zap.String("ip", logger.MaskIP(normalized)))

	return nil
}

// Remove deletes an address from the target user's trusted list.
func (s *TrustedIPService) Remove(ctx context.Context, actorID, targetUserID, ip string) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	normalized, err := normalizeIP(ip)
	if err != nil {
		return err
	}

	user, err := s.getUser(ctx, targetUserID)
	if err != nil {
		return err
	}

	found := false
	kept := user.TrustedIPs[:0]
	for _, trusted := range user.TrustedIPs {
		if trusted == normalized {
			found = true
			continue
		}
		kept = append(kept, trusted)
	}
	if !found {
		return ErrIPNotOnList
	}

	user.TrustedIPs = kept
	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("trusted ip removed",
		zap.String("user_id", user.ID),
		zap.String("ip", logger.MaskIP(normalized)))

	return nil
}

// List returns the target user's trusted addresses.
func (s *TrustedIPService) List(ctx context.Context, actorID, targetUserID string) ([]string, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	ips := make([]string, len(user.TrustedIPs))
	copy(ips, user.TrustedIPs)
	return ips, nil
}

// CheckIPRestriction looks up the user and applies admitIP.
func (s *TrustedIPService) CheckIPRestriction(ctx context.Context, userID, ip string) error {
	if !s.cfg.TrustedIP.Enabled {
		return nil
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	return admitIP(s.cfg, *user, &ip)
}

// admitIP is the admission enforcement point, shared by login and
// CheckIPRestriction. Admission passes when the restriction is globally
// disabled or the user's trusted list is empty; otherwise the request IP
// must be an exact match.
func admitIP(cfg *config.AppConfig, user domain.User, ip *string) error {
	if !cfg.TrustedIP.Enabled || len(user.TrustedIPs) == 0 {
		return nil
	}
	if ip == nil || !user.HasTrustedIP(strings.TrimSpace(*ip)) {
		return ErrIPNotTrusted
	}
	return nil
}

func (s *TrustedIPService) requireAdmin(ctx context.Context, actorID string) error {
	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

func (s *TrustedIPService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserNotFound
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	return user, nil
}

func normalizeIP(raw string) (string, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidIPAddress
	}
	return addr.String(), nil
}
