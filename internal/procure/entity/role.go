package entity

import "strings"

// Role 审批链角色（规范化枚举）
type Role string

// 角色编码
const (
	RoleSiteEngineer      Role = "site_engineer"
	RoleProjectManager    Role = "project_manager"
	RoleMEP               Role = "mep"
	RoleEstimator         Role = "estimator"
	RoleBuyer             Role = "buyer"
	RoleTechnicalDirector Role = "technical_director"
	RoleAdmin             Role = "admin"
	RoleUnknown           Role = ""
)

// roleAliases 历史数据中出现过的各种角色写法
var roleAliases = map[string]Role{
	"site_engineer":      RoleSiteEngineer,
	"siteengineer":       RoleSiteEngineer,
	"site engineer":      RoleSiteEngineer,
	"se":                 RoleSiteEngineer,
	"project_manager":    RoleProjectManager,
	"projectmanager":     RoleProjectManager,
	"project manager":    RoleProjectManager,
	"pm":                 RoleProjectManager,
	"mep":                RoleMEP,
	"mep_lead":           RoleMEP,
	"mep lead":           RoleMEP,
	"estimator":          RoleEstimator,
	"est":                RoleEstimator,
	"buyer":              RoleBuyer,
	"purchaser":          RoleBuyer,
	"technical_director": RoleTechnicalDirector,
	"technicaldirector":  RoleTechnicalDirector,
	"technical director": RoleTechnicalDirector,
	"td":                 RoleTechnicalDirector,
	"admin":              RoleAdmin,
	"administrator":      RoleAdmin,
}

// CanonicalRole 将任意写法的角色名规范化为枚举值
// 所有入口（JWT claims、请求参数、存量数据）统一经过此函数
func CanonicalRole(raw string) Role {
	key := strings.ToLower(strings.TrimSpace(raw))
	if role, ok := roleAliases[key]; ok {
		return role
	}
	return RoleUnknown
}

// IsFieldRole 是否现场发起角色
func (r Role) IsFieldRole() bool {
	return r == RoleSiteEngineer
}

// IsMidChain 是否中间审批角色（PM/MEP）
func (r Role) IsMidChain() bool {
	return r == RoleProjectManager || r == RoleMEP
}

// Valid 是否已知角色
func (r Role) Valid() bool {
	return r != RoleUnknown
}

// ActingIdentity 操作者身份
// realRole 来自登录凭证，effectiveRole 仅在管理员代角色操作时设置，
// 不使用任何全局/请求级可变上下文
type ActingIdentity struct {
	UserID        string
	Name          string
	RealRole      Role
	EffectiveRole Role
}

// Role 返回生效角色：管理员显式代操作时为代入角色，否则为真实角色
func (a ActingIdentity) Role() Role {
	if a.RealRole == RoleAdmin && a.EffectiveRole.Valid() {
		return a.EffectiveRole
	}
	return a.RealRole
}

// IsAdmin 真实身份是否管理员
func (a ActingIdentity) IsAdmin() bool {
	return a.RealRole == RoleAdmin
}
