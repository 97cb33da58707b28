package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/delegate-desk/internal/application/port"
)

// Notifier implements port.Notifier with Lark text messages addressed by open_id
type Notifier struct {
	client *SDKClient
	logger *zap.Logger
}

// NewNotifier creates a new Lark notifier
func NewNotifier(client *SDKClient, logger *zap.Logger) *Notifier {
	return &Notifier{client: client, logger: logger}
}

// Notify sends text to the recipient's Lark account
func (n *Notifier) Notify(ctx context.Context, recipient port.Recipient, text string) error {
	if recipient.LarkOpenID == "" {
		return fmt.Errorf("recipient %s has no lark open id", recipient.Name)
	}
	if text == "" {
		return fmt.Errorf("content cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal message content: %w", err)
	}

	_, err = n.SendMessage(ctx, larkim.ReceiveIdTypeOpenId, recipient.LarkOpenID, larkim.MsgTypeText, string(content))
	return err
}

// SendMessage creates one IM message and returns its message id
func (n *Notifier) SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := n.client.GetClient().Im.Message.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send message",
			zap.String("receive_id", receiveID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		n.logger.Error("API returned failure",
			zap.String("receive_id", receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	n.logger.Debug("Message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id", receiveID))

	return messageID, nil
}

var _ port.Notifier = (*Notifier)(nil)
