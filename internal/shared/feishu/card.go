package feishu

import (
	"context"
	"encoding/json"
	"fmt"
)

// =============================================================================
// 消息卡片服务 — 发送飞书交互式消息卡片
// 支持群聊和个人卡片发送，提供预设的采购审批通知卡片模板
// =============================================================================

// SendCard 向群聊发送消息卡片
// chatID: 群聊ID
// card: 交互式卡片内容
func (c *FeishuClient) SendCard(ctx context.Context, chatID string, card InteractiveCard) error {
	return c.sendCard(ctx, "chat_id", chatID, card)
}

// SendUserCard 向个人发送消息卡片
// userID: 用户ID（open_id）
// card: 交互式卡片内容
func (c *FeishuClient) SendUserCard(ctx context.Context, userID string, card InteractiveCard) error {
	return c.sendCard(ctx, "open_id", userID, card)
}

// sendCard 发送消息卡片的内部实现
func (c *FeishuClient) sendCard(ctx context.Context, idType, id string, card InteractiveCard) error {
	// 将卡片序列化为JSON字符串
	cardBytes, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("序列化卡片内容失败: %w", err)
	}

	// 构造请求体
	reqBody := map[string]interface{}{
		"receive_id_type": idType,
		"receive_id":      id,
		"msg_type":        "interactive",
		"content":         string(cardBytes),
	}

	// 发送消息，query参数通过URL传递
	path := fmt.Sprintf("/open-apis/im/v1/messages?receive_id_type=%s", idType)

	var resp SendMessageResponse
	if err := c.doRequest(ctx, "POST", path, reqBody, &resp); err != nil {
		return fmt.Errorf("发送消息卡片失败: %w", err)
	}

	return nil
}

// =============================================================================
// 预设卡片模板 — 采购审批业务通知卡片
// =============================================================================

// NewApprovalRequestCard 创建审批待办通知卡片
// code: 单据编号
// senderName: 提交人名称
// stage: 待审批角色/环节
// comment: 提交说明
// totalCost: 单据汇总金额
func NewApprovalRequestCard(code, senderName, stage, comment string, totalCost float64) InteractiveCard {
	elements := []CardElement{
		{
			Tag: "div",
			Fields: []CardField{
				{IsShort: true, Text: CardText{Tag: "lark_md", Content: fmt.Sprintf("**单据编号**\n%s", code)}},
				{IsShort: true, Text: CardText{Tag: "lark_md", Content: fmt.Sprintf("**提交人**\n%s", senderName)}},
				{IsShort: true, Text: CardText{Tag: "lark_md", Content: fmt.Sprintf("**审批环节**\n%s", stage)}},
				{IsShort: true, Text: CardText{Tag: "lark_md", Content: fmt.Sprintf("**汇总金额**\n%.2f", totalCost)}},
			},
		},
	}

	// 添加提交说明（如果有）
	if comment != "" {
		elements = append(elements,
			CardElement{Tag: "hr"},
			CardElement{
				Tag:  "div",
				Text: &CardText{Tag: "lark_md", Content: fmt.Sprintf("**提交说明**\n%s", comment)},
			},
		)
	}

	elements = append(elements,
		CardElement{Tag: "hr"},
		CardElement{
			Tag: "note",
			Elements: []CardElement{
				{Tag: "plain_text", Content: "请及时处理待审批单据"},
			},
		},
	)

	return InteractiveCard{
		Config: &CardConfig{WideScreenMode: true},
		Header: &CardHeader{
			Title:    CardText{Tag: "plain_text", Content: "📋 采购审批待办通知"},
			Template: "blue",
		},
		Elements: elements,
	}
}

// NewDecisionResultCard 创建审批结果通知卡片
// code: 单据编号
// result: 审批结果（approved/rejected）
// comment: 审批意见
func NewDecisionResultCard(code, result, comment string) InteractiveCard {
	// 根据结果选择颜色模板
	template := "green"
	emoji := "✅"
	resultText := "通过"
	if result != "approved" {
		template = "red"
		emoji = "❌"
		resultText = "驳回"
	}

	elements := []CardElement{
		{
			Tag: "div",
			Fields: []CardField{
				{IsShort: true, Text: CardText{Tag: "lark_md", Content: fmt.Sprintf("**单据编号**\n%s", code)}},
				{IsShort: true, Text: CardText{Tag: "lark_md", Content: fmt.Sprintf("**审批结果**\n%s %s", emoji, resultText)}},
			},
		},
	}

	// 添加审批意见（如果有）
	if comment != "" {
		elements = append(elements,
			CardElement{Tag: "hr"},
			CardElement{
				Tag:  "div",
				Text: &CardText{Tag: "lark_md", Content: fmt.Sprintf("**审批意见**\n%s", comment)},
			},
		)
	}

	return InteractiveCard{
		Config: &CardConfig{WideScreenMode: true},
		Header: &CardHeader{
			Title:    CardText{Tag: "plain_text", Content: "📝 采购审批结果通知"},
			Template: template,
		},
		Elements: elements,
	}
}

// NewVendorReviewCard 创建子单选商审批通知卡片
// poCode: 子单编号
// vendorName: 选定供应商
// totalCost: 子单金额
// itemCount: 材料行数
func NewVendorReviewCard(poCode, vendorName string, totalCost float64, itemCount int) InteractiveCard {
	return InteractiveCard{
		Config: &CardConfig{WideScreenMode: true},
		Header: &CardHeader{
			Title:    CardText{Tag: "plain_text", Content: "🏷️ 供应商选定审批通知"},
			Template: "orange",
		},
		Elements: []CardElement{
			{
				Tag: "div",
				Fields: []CardField{
					{IsShort: true, Text: CardText{Tag: "lark_md", Content: fmt.Sprintf("**子单编号**\n%s", poCode)}},
					{IsShort: true, Text: CardText{Tag: "lark_md", Content: fmt.Sprintf("**供应商**\n%s", vendorName)}},
					{IsShort: true, Text: CardText{Tag: "lark_md", Content: fmt.Sprintf("**子单金额**\n%.2f", totalCost)}},
					{IsShort: true, Text: CardText{Tag: "lark_md", Content: fmt.Sprintf("**材料行数**\n%d", itemCount)}},
				},
			},
			{Tag: "hr"},
			{
				Tag: "note",
				Elements: []CardElement{
					{Tag: "plain_text", Content: "请审批该子单的供应商选定结果"},
				},
			},
		},
	}
}
