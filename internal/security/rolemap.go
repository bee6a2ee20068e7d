package security

import (
	"strings"

	"github.com/jmespath/go-jmespath"
	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/db/models"
)

// RolesFromKeys translates external role-keys (LDAP group DNs, OAuth/SAML
// group claim values) into internal roles using the configured mapping. One
// external key can expand to several roles and a user can match several keys;
// the mapped role names are unioned and deduplicated. A mapping that names a
// role absent from the database is a configuration problem and is logged,
// never auto-created.
func (s *Store) RolesFromKeys(roleKeys []string) ([]*models.Role, error) {
	mappedNames := make(map[string]bool)

	for externalKey, roleNames := range s.cfg.RolesMapping {
		if s.matchKey(externalKey, roleKeys) {
			for _, name := range roleNames {
				mappedNames[name] = true
			}
		}
	}

	roles := make([]*models.Role, 0, len(mappedNames))

	for name := range mappedNames {
		role, err := s.FindRole(name)
		if err != nil {
			return nil, err
		}

		if role == nil {
			log.Warn().Str("role", name).
				Msg("roles mapping references a role that does not exist")

			continue
		}

		roles = append(roles, role)
	}

	return roles, nil
}

// matchKey reports whether the external key matches any of the user's
// role-keys, using substring matching when partial matching is configured.
func (s *Store) matchKey(externalKey string, roleKeys []string) bool {
	for _, key := range roleKeys {
		if key == externalKey {
			return true
		}

		if s.cfg.PartialRolesMatching && strings.Contains(key, externalKey) {
			return true
		}
	}

	return false
}

// RegistrationRoles resolves the role set for a newly provisioned user: the
// mapped roles from the external role-keys plus the configured registration
// default. The default role name may be computed from a JMESPath expression
// evaluated against the provider's user info.
func (s *Store) RegistrationRoles(roleKeys []string, userinfo map[string]interface{}) ([]*models.Role, error) {
	roles, err := s.RolesFromKeys(roleKeys)
	if err != nil {
		return nil, err
	}

	if !s.cfg.UserRegistration {
		return roles, nil
	}

	roleName := s.cfg.UserRegistrationRole

	if expr := s.cfg.UserRegistrationRoleJMESPath; expr != "" {
		result, errSearch := jmespath.Search(expr, userinfo)
		if errSearch != nil {
			log.Error().Err(errSearch).Str("expression", expr).
				Msg("registration role expression failed")
		} else if name, ok := result.(string); ok {
			roleName = name
		}
	}

	if roleName == "" {
		return roles, nil
	}

	role, err := s.FindRole(roleName)
	if err != nil {
		return nil, err
	}

	if role == nil {
		log.Warn().Str("role", roleName).Msg("registration role not found")
		return roles, nil
	}

	for _, existing := range roles {
		if existing.ID == role.ID {
			return roles, nil
		}
	}

	return append(roles, role), nil
}
