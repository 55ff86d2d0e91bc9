package service

import (
	"context"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/repository"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/shared/feishu"
	"gorm.io/gorm"
)

// CatalogLookup 概算清单目录查询（外部协作方，窄接口）
type CatalogLookup interface {
	LookupMaterial(ctx context.Context, boqID, name string) (*entity.BOQItem, error)
}

// Directory 通讯录查询（外部协作方，窄接口）
type Directory interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FirstByRole(ctx context.Context, role entity.Role) (*entity.User, error)
}

// Notifier 通知下发（外部协作方，尽力而为）
type Notifier interface {
	SendUserCard(ctx context.Context, userID string, card feishu.InteractiveCard) error
}

// EmailSender 邮件下发（外部协作方）
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogEmailSender 未配置邮件服务时的降级实现，只记日志
type LogEmailSender struct{}

func (LogEmailSender) Send(_ context.Context, to, subject, _ string) error {
	log.Printf("[PROCURE] 邮件服务未配置，跳过发送: to=%s subject=%s", to, subject)
	return nil
}

// Services 采购模块服务集合
type Services struct {
	Routing    *RoutingService
	CR         *ChangeRequestService
	Vendor     *VendorService
	Split      *SplitService
	Export     *ExportService
	Attachment *AttachmentService
}

// NewServices 创建采购模块服务集合
func NewServices(repos *repository.Repositories, db *gorm.DB, dedup *DedupCache, minioClient *minio.Client, bucket string) *Services {
	routing := NewRoutingService(repos.Assignment, repos.User)
	cr := NewChangeRequestService(repos, db, dedup, routing)
	vendor := NewVendorService(repos, db)
	split := NewSplitService(repos, db)

	return &Services{
		Routing:    routing,
		CR:         cr,
		Vendor:     vendor,
		Split:      split,
		Export:     NewExportService(repos),
		Attachment: NewAttachmentService(repos, db, minioClient, bucket),
	}
}

// SetNotifier 注入通知客户端
func (s *Services) SetNotifier(n Notifier) {
	s.CR.notifier = n
	s.Vendor.notifier = n
	s.Split.notifier = n
}

// SetEmailSender 注入邮件客户端
func (s *Services) SetEmailSender(e EmailSender) {
	s.CR.email = e
}
