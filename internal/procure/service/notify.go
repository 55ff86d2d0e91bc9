package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/shared/feishu"
)

// 通知统一为尽力而为：异步发送，失败只记日志不回滚业务

const notifyTimeout = 10 * time.Second

// sendCardAsync 异步发卡片，userID为飞书open_id
func sendCardAsync(notifier Notifier, feishuUserID string, card feishu.InteractiveCard) {
	if notifier == nil || feishuUserID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := notifier.SendUserCard(ctx, feishuUserID, card); err != nil {
			log.Printf("[PROCURE] 飞书卡片发送失败: %v", err)
		}
	}()
}

// notifyRouted 申请单流转到新审批人
func (s *ChangeRequestService) notifyRouted(cr *entity.ChangeRequest, actor entity.ActingIdentity, decision *RouteDecision, comment string) {
	card := feishu.NewApprovalRequestCard(cr.CRCode, actor.Name, string(decision.Role), comment, cr.TotalCost)
	sendCardAsync(s.notifier, decision.Approver.FeishuUserID, card)
}

// notifyCompleted 申请单整体完结，通知发起人
func (s *ChangeRequestService) notifyCompleted(cr *entity.ChangeRequest, actor entity.ActingIdentity) {
	requester, err := s.repos.User.FindByID(context.Background(), cr.RequesterID)
	if err != nil {
		log.Printf("[PROCURE] 完结通知查询发起人失败: %v", err)
		return
	}
	card := feishu.NewDecisionResultCard(cr.CRCode, "approved", fmt.Sprintf("审批人: %s", actor.Name))
	sendCardAsync(s.notifier, requester.FeishuUserID, card)
}

// notifyRejected 申请单被驳回，卡片+邮件双通道通知发起人
func (s *ChangeRequestService) notifyRejected(cr *entity.ChangeRequest, actor entity.ActingIdentity, reason string) {
	requester, err := s.repos.User.FindByID(context.Background(), cr.RequesterID)
	if err != nil {
		log.Printf("[PROCURE] 驳回通知查询发起人失败: %v", err)
		return
	}

	card := feishu.NewDecisionResultCard(cr.CRCode, "rejected", reason)
	sendCardAsync(s.notifier, requester.FeishuUserID, card)

	if s.email != nil && requester.Email != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			subject := fmt.Sprintf("采购申请 %s 已被驳回", cr.CRCode)
			body := fmt.Sprintf("申请单 %s 被 %s 驳回。\n原因: %s", cr.CRCode, actor.Name, reason)
			if err := s.email.Send(ctx, requester.Email, subject, body); err != nil {
				log.Printf("[PROCURE] 驳回邮件发送失败: %v", err)
			}
		}()
	}
}

// notifyPendingTD 申请单选商完毕进入TD审批
func (s *VendorService) notifyPendingTD(cr *entity.ChangeRequest, actor entity.ActingIdentity) {
	td, err := s.repos.User.FirstByRole(context.Background(), entity.RoleTechnicalDirector)
	if err != nil || td == nil {
		log.Printf("[PROCURE] TD通知查询审批人失败: %v", err)
		return
	}
	card := feishu.NewApprovalRequestCard(cr.CRCode, actor.Name, string(entity.RoleTechnicalDirector), "全部材料已完成选商", cr.TotalCost)
	sendCardAsync(s.notifier, td.FeishuUserID, card)
}

// notifyPendingChild 子单送审，通知TD
func (s *SplitService) notifyPendingChild(child *entity.POChild) {
	td, err := s.repos.User.FirstByRole(context.Background(), entity.RoleTechnicalDirector)
	if err != nil || td == nil {
		log.Printf("[PROCURE] 子单送审通知查询TD失败: %v", err)
		return
	}
	vendorName := ""
	if child.VendorName != nil {
		vendorName = *child.VendorName
	}
	card := feishu.NewVendorReviewCard(child.POCode, vendorName, child.TotalCost, len(child.Items))
	sendCardAsync(s.notifier, td.FeishuUserID, card)
}

// notifyChildDecision TD子单决策，通知选商买手
func (s *SplitService) notifyChildDecision(child *entity.POChild, approved bool, comment string) {
	buyer, err := s.repos.User.FindByID(context.Background(), child.SelectedByID)
	if err != nil {
		log.Printf("[PROCURE] 子单决策通知查询买手失败: %v", err)
		return
	}
	result := "rejected"
	if approved {
		result = "approved"
	}
	card := feishu.NewDecisionResultCard(child.POCode, result, comment)
	sendCardAsync(s.notifier, buyer.FeishuUserID, card)
}
