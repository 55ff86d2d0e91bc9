package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/procerr"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/repository"
	"gorm.io/gorm"
)

// AttachmentService 申请单报价附件服务
type AttachmentService struct {
	repos       *repository.Repositories
	db          *gorm.DB
	minioClient *minio.Client
	bucketName  string
}

func NewAttachmentService(repos *repository.Repositories, db *gorm.DB, minioClient *minio.Client, bucket string) *AttachmentService {
	return &AttachmentService{repos: repos, db: db, minioClient: minioClient, bucketName: bucket}
}

// Upload 上传报价附件并登记到申请单
func (s *AttachmentService) Upload(ctx context.Context, actor entity.ActingIdentity, crID string, reader io.Reader, fileName string, fileSize int64, contentType string) (*entity.ChangeRequest, error) {
	cr, err := s.repos.CR.FindByID(ctx, crID)
	if err != nil {
		return nil, err
	}
	if entity.IsTerminalCRStatus(cr.Status) && cr.Status != entity.CRStatusSplitToPO {
		return nil, procerr.StateConflictf("change request %s is %s, attachments closed", cr.CRCode, cr.Status)
	}
	if s.minioClient == nil {
		return nil, procerr.Dependencyf("storage not configured")
	}

	// 生成存储路径
	objectName := fmt.Sprintf("procure/%s/%s%s", time.Now().Format("2006/01/02"), uuid.New().String()[:8], filepath.Ext(fileName))

	_, err = s.minioClient.PutObject(ctx, s.bucketName, objectName, reader, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, procerr.Dependencyf("upload file: %v", err)
	}

	cr.Attachments = append(cr.Attachments, entity.JSONB{
		"name":         fileName,
		"path":         objectName,
		"size":         fileSize,
		"content_type": contentType,
		"uploaded_by":  actor.Name,
		"uploaded_at":  time.Now().Format(time.RFC3339),
	})

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(cr).Update("attachments", cr.Attachments).Error; err != nil {
			return err
		}
		return s.repos.History.AppendTx(tx, &entity.HistoryAction{
			BOQID:  cr.BOQID,
			CRID:   cr.ID,
			Role:   string(actor.Role()),
			Type:   entity.ActionTypeAttachmentUpload,
			Sender: actor.Name,
			Status: cr.Status,
			References: entity.JSONB{
				"cr_code":   cr.CRCode,
				"file_name": fileName,
			},
		})
	})
	if err != nil {
		return nil, procerr.Persistencef("register attachment: %v", err)
	}

	return cr, nil
}

// Download 下载报价附件
func (s *AttachmentService) Download(ctx context.Context, crID, objectPath string) (io.ReadCloser, string, error) {
	cr, err := s.repos.CR.FindByID(ctx, crID)
	if err != nil {
		return nil, "", err
	}

	// 只允许下载登记在该申请单上的附件
	var fileName string
	for _, att := range cr.Attachments {
		m, ok := att.(map[string]interface{})
		if !ok {
			continue
		}
		if p, _ := m["path"].(string); p == objectPath {
			fileName, _ = m["name"].(string)
			break
		}
	}
	if fileName == "" {
		return nil, "", procerr.NotFoundf("attachment %s on %s", objectPath, cr.CRCode)
	}
	if s.minioClient == nil {
		return nil, "", procerr.Dependencyf("storage not configured")
	}

	object, err := s.minioClient.GetObject(ctx, s.bucketName, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", procerr.Dependencyf("get object: %v", err)
	}
	return object, fileName, nil
}
