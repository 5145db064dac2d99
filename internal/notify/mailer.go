package notify

import (
	"fmt"

	"github.com/plumped/InventoryPulse-sub000/internal/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer 订单邮件通知。未配置SMTP时为空实现，所有发送静默跳过。
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewMailer 创建邮件通知器。cfg.Host 为空时返回空实现。
func NewMailer(cfg config.SMTPConfig, logger *zap.Logger) *Mailer {
	m := &Mailer{logger: logger}
	if cfg.Host == "" {
		return m
	}
	m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	m.from = cfg.From
	if m.from == "" {
		m.from = cfg.User
	}
	return m
}

// SendOrderSent 向供应商发送订单通知
func (m *Mailer) SendOrderSent(to, orderNumber string) error {
	return m.send(to,
		fmt.Sprintf("采购订单 %s", orderNumber),
		fmt.Sprintf("您好，\n\n采购订单 %s 已发出，请查收并确认交期。\n", orderNumber))
}

// SendOrderApproved 通知创建人订单已审批
func (m *Mailer) SendOrderApproved(to, orderNumber string) error {
	return m.send(to,
		fmt.Sprintf("采购订单 %s 已审批", orderNumber),
		fmt.Sprintf("您好，\n\n采购订单 %s 已审批通过。\n", orderNumber))
}

func (m *Mailer) send(to, subject, body string) error {
	if m == nil || m.dialer == nil {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	m.logger.Info("Order mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
