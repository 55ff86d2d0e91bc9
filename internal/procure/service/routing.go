package service

import (
	"context"
	"fmt"

	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/procerr"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/repository"
)

// ErrNoApproverConfigured 项目内找不到目标角色的可用审批人
var ErrNoApproverConfigured = fmt.Errorf("%w: no approver configured", procerr.ErrValidation)

// RouteDecision 路由结果
type RouteDecision struct {
	Role     entity.Role
	Approver *entity.User
}

// RoutingService 审批路由解析
// 按操作者角色、材料构成和委派关系决定下一审批角色与具体审批人
type RoutingService struct {
	assignments *repository.AssignmentRepository
	directory   Directory
}

func NewRoutingService(assignments *repository.AssignmentRepository, directory Directory) *RoutingService {
	return &RoutingService{assignments: assignments, directory: directory}
}

// ResolveNextApprover 解析下一审批人
// routeHint: PM/MEP操作时可显式指定 estimator/buyer；其余情况忽略
// buyerID: 路由到买手时必须给出具体买手，不做静默兜底
func (s *RoutingService) ResolveNextApprover(ctx context.Context, cr *entity.ChangeRequest, actor entity.ActingIdentity, routeHint, buyerID string) (*RouteDecision, error) {
	role := actor.Role()

	switch {
	case role.IsFieldRole():
		return s.resolveFieldDelegator(ctx, cr)
	case role.IsMidChain():
		return s.resolveFromMidChain(ctx, cr, routeHint, buyerID)
	case role == entity.RoleEstimator:
		// 估算员审批后只能去买手
		return s.resolveBuyer(ctx, buyerID)
	default:
		return nil, procerr.Validationf("role %s cannot route a change request", role)
	}
}

// resolveFieldDelegator 现场角色的下一审批人是当初委派工作的人
// BOQ级委派记录优先，缺失时退回项目级PM/MEP指派
func (s *RoutingService) resolveFieldDelegator(ctx context.Context, cr *entity.ChangeRequest) (*RouteDecision, error) {
	item, err := s.assignments.FindItemAssignment(ctx, cr.BOQID, cr.RequesterID)
	if err != nil {
		return nil, procerr.Dependencyf("item assignment lookup: %v", err)
	}
	if item != nil {
		role := entity.RoleProjectManager
		if entity.CanonicalRole(item.AssignedByRole) == entity.RoleMEP {
			role = entity.RoleMEP
		}
		approver, err := s.directory.FindByID(ctx, item.AssignedByID)
		if err != nil {
			return nil, fmt.Errorf("%w: delegator %s for role %s", ErrNoApproverConfigured, item.AssignedByID, role)
		}
		return &RouteDecision{Role: role, Approver: approver}, nil
	}

	// 项目级兜底：先PM后MEP
	for _, role := range []entity.Role{entity.RoleProjectManager, entity.RoleMEP} {
		pa, err := s.assignments.FindProjectAssignment(ctx, cr.ProjectID, role)
		if err != nil {
			return nil, procerr.Dependencyf("project assignment lookup: %v", err)
		}
		if pa == nil {
			continue
		}
		approver, err := s.directory.FindByID(ctx, pa.UserID)
		if err != nil {
			continue
		}
		return &RouteDecision{Role: role, Approver: approver}, nil
	}

	return nil, fmt.Errorf("%w: no pm/mep assigned for project %s", ErrNoApproverConfigured, cr.ProjectID)
}

// resolveFromMidChain PM/MEP后的路由
// 显式hint优先；默认规则：存在新材料或超概算数量走估算员，否则直达买手
func (s *RoutingService) resolveFromMidChain(ctx context.Context, cr *entity.ChangeRequest, routeHint, buyerID string) (*RouteDecision, error) {
	target := entity.CanonicalRole(routeHint)
	if routeHint != "" && target != entity.RoleEstimator && target != entity.RoleBuyer {
		return nil, procerr.Validationf("invalid route hint %q", routeHint)
	}

	if target == entity.RoleUnknown {
		target = entity.RoleBuyer
		for _, m := range cr.Materials {
			if m.IsNew || m.ExceedsBudget() {
				target = entity.RoleEstimator
				break
			}
		}
	}

	if target == entity.RoleEstimator {
		return s.resolveEstimator(ctx, cr)
	}
	return s.resolveBuyer(ctx, buyerID)
}

func (s *RoutingService) resolveEstimator(ctx context.Context, cr *entity.ChangeRequest) (*RouteDecision, error) {
	pa, err := s.assignments.FindProjectAssignment(ctx, cr.ProjectID, entity.RoleEstimator)
	if err != nil {
		return nil, procerr.Dependencyf("project assignment lookup: %v", err)
	}
	if pa != nil {
		if approver, err := s.directory.FindByID(ctx, pa.UserID); err == nil {
			return &RouteDecision{Role: entity.RoleEstimator, Approver: approver}, nil
		}
	}

	approver, err := s.directory.FirstByRole(ctx, entity.RoleEstimator)
	if err != nil {
		return nil, procerr.Dependencyf("directory lookup: %v", err)
	}
	if approver == nil {
		return nil, fmt.Errorf("%w: no estimator available", ErrNoApproverConfigured)
	}
	return &RouteDecision{Role: entity.RoleEstimator, Approver: approver}, nil
}

// resolveBuyer 买手路由必须显式给出买手ID
func (s *RoutingService) resolveBuyer(ctx context.Context, buyerID string) (*RouteDecision, error) {
	if buyerID == "" {
		return nil, procerr.Validationf("buyer routing requires an explicit buyer id")
	}
	approver, err := s.directory.FindByID(ctx, buyerID)
	if err != nil {
		return nil, procerr.Validationf("buyer %s not found or inactive", buyerID)
	}
	if entity.CanonicalRole(approver.Role) != entity.RoleBuyer {
		return nil, procerr.Validationf("user %s is not a buyer", buyerID)
	}
	return &RouteDecision{Role: entity.RoleBuyer, Approver: approver}, nil
}
