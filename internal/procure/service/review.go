package service

import (
	"context"
	"fmt"

	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/procerr"
	"gorm.io/gorm"
)

// crTransitions 各动作允许的前置状态
var crTransitions = map[string][]string{
	entity.ActionTypeSendForReview: {
		entity.CRStatusPending,
	},
	entity.ActionTypeApprove: {
		entity.CRStatusSendToPM,
		entity.CRStatusSendToMEP,
		entity.CRStatusApprovedByPM,
		entity.CRStatusSendToEst,
		entity.CRStatusPendingTD,
	},
	entity.ActionTypeSelectVendor: {
		entity.CRStatusSendToBuyer,
		entity.CRStatusAssignedToBuyer,
		entity.CRStatusPendingTD,
		entity.CRStatusSplitToPO,
	},
	entity.ActionTypeMaterialize: {
		entity.CRStatusSendToBuyer,
		entity.CRStatusAssignedToBuyer,
		entity.CRStatusPendingTD,
		entity.CRStatusSplitToPO,
	},
}

// canTransition 当前状态下是否允许执行该动作
func canTransition(action, status string) bool {
	for _, allowed := range crTransitions[action] {
		if allowed == status {
			return true
		}
	}
	return false
}

// rejectableStatus 驳回允许所有非终态
func rejectableStatus(status string) bool {
	return !entity.IsTerminalCRStatus(status)
}

// ReviewRequest 审批/送审请求
type ReviewRequest struct {
	RouteHint string `json:"route_hint"` // estimator | buyer，仅PM/MEP节点生效
	BuyerID   string `json:"buyer_id"`   // 路由到买手时必填
	Comment   string `json:"comment"`
}

// SendForReview 发起人提交申请单进入审批链
func (s *ChangeRequestService) SendForReview(ctx context.Context, actor entity.ActingIdentity, crID string, req *ReviewRequest) (*entity.ChangeRequest, error) {
	cr, err := s.repos.CR.FindByID(ctx, crID)
	if err != nil {
		return nil, err
	}
	if !canTransition(entity.ActionTypeSendForReview, cr.Status) {
		return nil, procerr.StateConflictf("change request %s is %s, cannot send for review", cr.CRCode, cr.Status)
	}
	if cr.RequesterID != actor.UserID && !actor.IsAdmin() {
		return nil, procerr.Permissionf("only the requester can send %s for review", cr.CRCode)
	}

	// 始终按发起人登记角色解析首个审批节点（管理员代操作也不例外）
	requester := entity.ActingIdentity{
		UserID:   cr.RequesterID,
		Name:     cr.RequesterName,
		RealRole: entity.CanonicalRole(cr.RequesterRole),
	}
	decision, err := s.routing.ResolveNextApprover(ctx, cr, requester, req.RouteHint, req.BuyerID)
	if err != nil {
		return nil, err
	}

	if err := s.applyRoute(cr, decision); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(cr).Error; err != nil {
			return err
		}
		return s.repos.History.AppendTx(tx, &entity.HistoryAction{
			BOQID:    cr.BOQID,
			CRID:     cr.ID,
			Role:     string(actor.Role()),
			Type:     entity.ActionTypeSendForReview,
			Sender:   actor.Name,
			Receiver: decision.Approver.Name,
			Status:   cr.Status,
			Comments: req.Comment,
			References: entity.JSONB{
				"cr_code":       cr.CRCode,
				"approver_role": string(decision.Role),
			},
		})
	})
	if err != nil {
		return nil, procerr.Persistencef("send for review: %v", err)
	}

	s.notifyRouted(cr, actor, decision, req.Comment)
	return cr, nil
}

// Approve 当前审批节点通过
// 节点推进规则：
//
//	send_to_pm / send_to_mep -> approved_by_pm（转估算员）或 assigned_to_buyer（直达买手）
//	approved_by_pm / send_to_est -> send_to_buyer（估算员核价后指定买手）
//	pending_td_approval        -> purchase_complete（技术总监整单放行）
func (s *ChangeRequestService) Approve(ctx context.Context, actor entity.ActingIdentity, crID string, req *ReviewRequest) (*entity.ChangeRequest, error) {
	cr, err := s.repos.CR.FindByID(ctx, crID)
	if err != nil {
		return nil, err
	}
	if !canTransition(entity.ActionTypeApprove, cr.Status) {
		return nil, procerr.StateConflictf("change request %s is %s, cannot approve", cr.CRCode, cr.Status)
	}
	if err := s.checkApprover(actor, cr); err != nil {
		return nil, err
	}

	var (
		decision *RouteDecision
		action   = entity.ActionTypeApprove
		refs     = entity.JSONB{"cr_code": cr.CRCode}
	)

	switch cr.Status {
	case entity.CRStatusSendToPM, entity.CRStatusSendToMEP:
		decision, err = s.routing.resolveFromMidChain(ctx, cr, req.RouteHint, req.BuyerID)
		if err != nil {
			return nil, err
		}
		if decision.Role == entity.RoleEstimator {
			// 现场发起链：PM/MEP通过后等估算员核价
			cr.Status = entity.CRStatusApprovedByPM
			cr.ApprovalRequiredFrom = string(entity.RoleEstimator)
		} else {
			cr.Status = entity.CRStatusAssignedToBuyer
			cr.ApprovalRequiredFrom = string(entity.RoleBuyer)
			cr.AssignedBuyerID = &decision.Approver.ID
			cr.VendorMode = true
		}
		refs["approver_role"] = string(decision.Role)

	case entity.CRStatusApprovedByPM, entity.CRStatusSendToEst:
		// 估算员核价通过，必须显式指定买手
		decision, err = s.routing.resolveBuyer(ctx, req.BuyerID)
		if err != nil {
			return nil, err
		}
		cr.Status = entity.CRStatusSendToBuyer
		cr.ApprovalRequiredFrom = string(entity.RoleBuyer)
		cr.AssignedBuyerID = &decision.Approver.ID
		cr.VendorMode = true
		refs["buyer_id"] = decision.Approver.ID

	case entity.CRStatusPendingTD:
		// 整单TD放行：未决的选商记录一并核准
		cr.Status = entity.CRStatusComplete
		cr.ApprovalRequiredFrom = ""
		action = entity.ActionTypeApprove
		refs["final"] = true
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cr.Status == entity.CRStatusComplete {
			if err := tx.Model(&entity.VendorSelection{}).
				Where("cr_id = ? AND status = ?", cr.ID, entity.SelectionStatusPendingTD).
				Update("status", entity.SelectionStatusApproved).Error; err != nil {
				return err
			}
		}
		if err := tx.Save(cr).Error; err != nil {
			return err
		}
		history := &entity.HistoryAction{
			BOQID:      cr.BOQID,
			CRID:       cr.ID,
			Role:       string(actor.Role()),
			Type:       action,
			Sender:     actor.Name,
			Status:     cr.Status,
			Comments:   req.Comment,
			References: refs,
		}
		if decision != nil {
			history.Receiver = decision.Approver.Name
		}
		return s.repos.History.AppendTx(tx, history)
	})
	if err != nil {
		return nil, procerr.Persistencef("approve change request: %v", err)
	}

	if decision != nil {
		s.notifyRouted(cr, actor, decision, req.Comment)
	} else {
		s.notifyCompleted(cr, actor)
	}
	return cr, nil
}

// RejectRequest 驳回请求
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Reject 驳回申请单，任意非终态节点可操作，驳回后整单关闭
func (s *ChangeRequestService) Reject(ctx context.Context, actor entity.ActingIdentity, crID string, req *RejectRequest) (*entity.ChangeRequest, error) {
	cr, err := s.repos.CR.FindByID(ctx, crID)
	if err != nil {
		return nil, err
	}
	if !rejectableStatus(cr.Status) {
		return nil, procerr.StateConflictf("change request %s is %s, cannot reject", cr.CRCode, cr.Status)
	}
	if cr.Status != entity.CRStatusPending {
		if err := s.checkApprover(actor, cr); err != nil {
			return nil, err
		}
	} else if cr.RequesterID != actor.UserID && !actor.IsAdmin() {
		return nil, procerr.Permissionf("only the requester can withdraw %s", cr.CRCode)
	}

	cr.Status = entity.CRStatusRejected
	cr.RejectReason = req.Reason
	cr.ApprovalRequiredFrom = ""
	cr.AssignedPMID = nil
	cr.AssignedMEPID = nil
	cr.AssignedBuyerID = nil

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(cr).Error; err != nil {
			return err
		}
		return s.repos.History.AppendTx(tx, &entity.HistoryAction{
			BOQID:    cr.BOQID,
			CRID:     cr.ID,
			Role:     string(actor.Role()),
			Type:     entity.ActionTypeReject,
			Sender:   actor.Name,
			Receiver: cr.RequesterName,
			Status:   cr.Status,
			Comments: req.Reason,
			References: entity.JSONB{
				"cr_code": cr.CRCode,
			},
		})
	})
	if err != nil {
		return nil, procerr.Persistencef("reject change request: %v", err)
	}

	s.notifyRejected(cr, actor, req.Reason)
	return cr, nil
}

// applyRoute 把路由结果写到申请单的状态和指派字段
func (s *ChangeRequestService) applyRoute(cr *entity.ChangeRequest, decision *RouteDecision) error {
	switch decision.Role {
	case entity.RoleProjectManager:
		cr.Status = entity.CRStatusSendToPM
		cr.AssignedPMID = &decision.Approver.ID
	case entity.RoleMEP:
		cr.Status = entity.CRStatusSendToMEP
		cr.AssignedMEPID = &decision.Approver.ID
	case entity.RoleEstimator:
		cr.Status = entity.CRStatusSendToEst
	case entity.RoleBuyer:
		cr.Status = entity.CRStatusAssignedToBuyer
		cr.AssignedBuyerID = &decision.Approver.ID
		cr.VendorMode = true
	default:
		return procerr.Validationf("unexpected route target %s", decision.Role)
	}
	cr.ApprovalRequiredFrom = string(decision.Role)
	return nil
}

// checkApprover 校验操作者是否当前节点的审批角色
func (s *ChangeRequestService) checkApprover(actor entity.ActingIdentity, cr *entity.ChangeRequest) error {
	if actor.IsAdmin() {
		return nil
	}
	required := entity.CanonicalRole(cr.ApprovalRequiredFrom)
	if !required.Valid() {
		return procerr.StateConflictf("change request %s has no pending approval", cr.CRCode)
	}
	if actor.Role() != required {
		return fmt.Errorf("%w: %s approval required, got %s", procerr.ErrPermission, required, actor.Role())
	}
	return nil
}
