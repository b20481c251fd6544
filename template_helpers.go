package accounts

import (
	"github.com/goliatone/go-router"
)

var TemplateUserKey = "current_user"

// TemplateHelpers returns a map of helper functions and data that can be used
// with go-template's WithGlobalData option for account-related template
// functionality.
//
// Usage:
//
//	renderer, err := template.NewRenderer(
//	    template.WithBaseDir("./templates"),
//	    template.WithGlobalData(accounts.TemplateHelpers()),
//	)
//
// In templates, you can then use:
//
//	{% if current_user %}
//	{% if current_user|has_role:"admin" %}
//	{% if current_user|is_verified %}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
		"has_role":         hasRole,
		"is_admin":         isAdmin,
		"is_verified":      isVerified,

		// Role constants for easy template access
		"roles": map[string]string{
			"regular": RoleRegular,
			"admin":   RoleAdmin,
		},
	}
}

// TemplateHelpersWithUser returns template helpers with a specific user set
// as current_user.
func TemplateHelpersWithUser(user *User) map[string]any {
	helpers := TemplateHelpers()
	helpers[TemplateUserKey] = user
	return helpers
}

// TemplateHelpersWithRouter returns template helpers with the session that
// ProtectedRoute stored in the request locals exposed as current_user.
func TemplateHelpersWithRouter(ctx router.Context, userKey string) map[string]any {
	if userKey == "" {
		userKey = TemplateUserKey
	}

	helpers := TemplateHelpers()

	if user := ctx.Locals(userKey); user != nil {
		helpers[TemplateUserKey] = user
	}

	return helpers
}

// MergeTemplateData combines request-scoped helper data with view-specific
// data. View data wins on key collisions.
func MergeTemplateData(ctx router.Context, data router.ViewContext) router.ViewContext {
	if data == nil {
		data = router.ViewContext{}
	}

	for key, value := range TemplateHelpersWithRouter(ctx, TemplateUserKey) {
		if _, exists := data[key]; !exists {
			data[key] = value
		}
	}

	return data
}

// GetTemplateUser is a convenience function to extract user data from router
// context for template usage.
func GetTemplateUser(ctx router.Context, userKey string) (any, bool) {
	if userKey == "" {
		userKey = TemplateUserKey
	}

	user := ctx.Locals(userKey)
	return user, user != nil
}

// isAuthenticated checks if the provided user object is not nil
func isAuthenticated(user any) bool {
	if user == nil {
		return false
	}

	switch u := user.(type) {
	case *User:
		return u != nil
	case User:
		return true
	case *SessionObject:
		return u != nil && u.UserID != ""
	case map[string]any:
		// Handle JSON-converted user objects
		return len(u) > 0
	default:
		return false
	}
}

// hasRole checks if the user has the specified role
func hasRole(user any, role string) bool {
	switch u := user.(type) {
	case *User:
		if u == nil {
			return false
		}
		return u.Role == role
	case User:
		return u.Role == role
	case *SessionObject:
		if u == nil {
			return false
		}
		return u.HasRole(role)
	case map[string]any:
		// Handle JSON-converted user objects
		if userRole, exists := u["role"]; exists {
			if roleStr, ok := userRole.(string); ok {
				return roleStr == role
			}
		}
		return false
	default:
		return false
	}
}

func isAdmin(user any) bool {
	return hasRole(user, RoleAdmin)
}

// isVerified reports whether the account behind the session or record has
// confirmed its email address.
func isVerified(user any) bool {
	switch u := user.(type) {
	case *User:
		if u == nil {
			return false
		}
		return u.Verified
	case User:
		return u.Verified
	case *SessionObject:
		if u == nil {
			return false
		}
		return u.IsVerified()
	case map[string]any:
		if verified, exists := u["is_verified"]; exists {
			if b, ok := verified.(bool); ok {
				return b
			}
		}
		return false
	default:
		return false
	}
}
