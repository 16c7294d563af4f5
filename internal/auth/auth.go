package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// RoleChatUser grants access to session and message routes.
const RoleChatUser = "chat_user"

// Identity is the authenticated caller: a subject name and its roles.
type Identity struct {
	Subject string
	Roles   []string
}

func (i Identity) HasRole(role string) bool {
	for _, candidate := range i.Roles {
		if candidate == role {
			return true
		}
	}
	return false
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

// StaticAPIKeyValidator resolves keys from a fixed spec parsed at startup,
// comma separated entries of the form key:subject:role|role.
type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		key, identity, err := parseKeyEntry(entry)
		if err != nil {
			return nil, err
		}
		validator.keys[key] = identity
	}
	return validator, nil
}

func parseKeyEntry(entry string) (string, Identity, error) {
	key, rest, ok := strings.Cut(strings.TrimSpace(entry), ":")
	if !ok {
		return "", Identity{}, fmt.Errorf("invalid static key entry %q: expected key:subject:role|role", entry)
	}
	subject, roleSpec, ok := strings.Cut(rest, ":")
	if !ok || strings.Contains(roleSpec, ":") {
		return "", Identity{}, fmt.Errorf("invalid static key entry %q: expected key:subject:role|role", entry)
	}
	key = strings.TrimSpace(key)
	subject = strings.TrimSpace(subject)
	if key == "" || subject == "" {
		return "", Identity{}, fmt.Errorf("invalid static key entry %q: empty key/subject", entry)
	}

	var roles []string
	for _, role := range strings.Split(roleSpec, "|") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return "", Identity{}, fmt.Errorf("invalid static key entry %q: at least one role is required", entry)
	}
	sort.Strings(roles)
	return key, Identity{Subject: subject, Roles: roles}, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}
