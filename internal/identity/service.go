// Package identity is the dashboard's capability provider: it maps
// authenticated admins to roles and answers the permission checks the
// moderation engine and handlers perform.
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// Service provides role-based capability checks for dashboard users.
type Service struct {
	mu         sync.RWMutex
	config     *Config
	configPath string

	// Quick lookup maps built from config
	userRoles  map[string]*Role      // user ID -> Role
	userInfos  map[string]*AdminUser // user ID -> AdminUser
	userTokens map[string]string     // token -> user ID
}

// NewService creates a new identity service.
// If configPath is empty, the service will be in "disabled" mode
// where all capability checks return false.
func NewService(configPath string) (*Service, error) {
	s := &Service{
		configPath: configPath,
		userRoles:  make(map[string]*Role),
		userInfos:  make(map[string]*AdminUser),
		userTokens: make(map[string]string),
	}

	if configPath == "" {
		log.Info().Msg("identity: no config path provided, service disabled")
		return s, nil
	}

	if err := s.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load identity config: %w", err)
	}

	return s, nil
}

// loadConfig reads and parses the config file
func (s *Service) loadConfig() error {
	data, err := os.ReadFile(s.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", s.configPath).Msg("identity: config file not found, service disabled")
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = &config
	s.rebuildLookupMaps()

	log.Info().
		Int("roles", len(config.Roles)).
		Int("users", len(config.Users)).
		Str("path", s.configPath).
		Msg("identity: config loaded")

	return nil
}

// rebuildLookupMaps rebuilds the quick lookup maps from config
// Caller must hold the write lock
func (s *Service) rebuildLookupMaps() {
	s.userRoles = make(map[string]*Role)
	s.userInfos = make(map[string]*AdminUser)
	s.userTokens = make(map[string]string)

	if s.config == nil {
		return
	}

	for i := range s.config.Users {
		user := &s.config.Users[i]
		role, ok := s.config.Roles[user.Role]
		if ok {
			s.userRoles[user.ID] = role
			s.userInfos[user.ID] = user
			if user.Token != "" {
				s.userTokens[user.Token] = user.ID
			}
		}
	}
}

// Reload reloads the configuration from disk
func (s *Service) Reload() error {
	if s.configPath == "" {
		return nil
	}
	return s.loadConfig()
}

// IsEnabled returns true if the identity service is configured and enabled
func (s *Service) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config != nil && len(s.config.Users) > 0
}

// IsAdmin returns true if the given user ID has the admin role
func (s *Service) IsAdmin(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.userRoles[id]
	if !ok {
		return false
	}
	return role.Name == RoleAdmin
}

// IsModerator returns true if the given user ID has moderator privileges.
// This includes both moderators and admins (admins have all moderator permissions).
func (s *Service) IsModerator(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.userRoles[id]
	return ok
}

// HasPermission returns true if the given user ID has the specified permission
func (s *Service) HasPermission(id string, permission Permission) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.userRoles[id]
	if !ok {
		return false
	}
	return role.HasPermission(permission)
}

// Lookup resolves a bearer token to a user ID.
func (s *Service) Lookup(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userTokens[token]
	return id, ok
}

// GetRole returns the role for the given user ID, if any
func (s *Service) GetRole(id string) (*Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.userRoles[id]
	if !ok {
		return nil, false
	}
	// Return a copy to prevent external modification
	roleCopy := *role
	return &roleCopy, true
}

// GetAdminUser returns the dashboard user info for the given ID, if any
func (s *Service) GetAdminUser(id string) (*AdminUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.userInfos[id]
	if !ok {
		return nil, false
	}
	// Return a copy to prevent external modification
	userCopy := *user
	return &userCopy, true
}

// ListAdminUsers returns all configured dashboard users
func (s *Service) ListAdminUsers() []AdminUser {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil
	}

	// Return a copy to prevent external modification
	result := make([]AdminUser, len(s.config.Users))
	copy(result, s.config.Users)
	return result
}
