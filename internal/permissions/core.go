package permissions

// Capability identifiers guarding the authorization store.
const (
	AuthorizationView   = "authorization.view"
	AuthorizationManage = "authorization.manage"
	AuditView           = "audit.view"
)

// CoreModule groups the built-in permissions.
const CoreModule = "core"

func init() {
	Default.MustRegister(
		Definition{
			ID:          AuthorizationView,
			Module:      CoreModule,
			Description: "View authorization grants",
		},
		Definition{
			ID:          AuthorizationManage,
			Module:      CoreModule,
			Description: "Create, edit and delete authorization grants",
			DependsOn:   []string{AuthorizationView},
		},
		Definition{
			ID:          AuditView,
			Module:      CoreModule,
			Description: "View audit logs",
		},
	)
}
