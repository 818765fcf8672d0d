package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ResumeSubmission 简历提交/快照表
// 每次上传生成一行，记录原始文件位置与处理状态的流转
type ResumeSubmission struct {
	SubmissionUUID      string    `gorm:"type:char(36);primaryKey"`
	SubmissionTimestamp time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_rs_submission_timestamp"`
	SourceChannel       string    `gorm:"type:varchar(100)"`
	OriginalFilename    string    `gorm:"type:varchar(255)"`
	OriginalFilePathOSS string    `gorm:"type:varchar(1024)"`
	DocumentPathOSS     string    `gorm:"type:varchar(1024)"`
	RawFileMD5          string    `gorm:"type:char(32);index:idx_rs_raw_file_md5"`
	ProcessingStatus    string    `gorm:"type:varchar(50);default:'PENDING_EXTRACTION';index:idx_rs_processing_status"`
	ErrorMessage        string    `gorm:"type:text"`
	CreatedAt           time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (ResumeSubmission) TableName() string {
	return "resume_submissions"
}

// ExtractedResume 规范化简历文档表
// 一次成功的提取会话产出一行，文档本体以JSON列存储
type ExtractedResume struct {
	SubmissionUUID        string         `gorm:"type:char(36);primaryKey"`
	CandidateName         string         `gorm:"type:varchar(255);index:idx_er_candidate_name"`
	CandidateTitle        string         `gorm:"type:varchar(255)"`
	RequisitionNumber     string         `gorm:"type:varchar(100)"`
	DocumentJSON          datatypes.JSON `gorm:"type:json"`
	DetectedSectionsJSON  datatypes.JSON `gorm:"type:json"`
	CompletedSectionsJSON datatypes.JSON `gorm:"type:json"`
	CostEstimate          float64        `gorm:"type:double"`
	ExtractionDurationMS  int64          `gorm:"type:bigint"`
	CreatedAt             time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt             time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	ResumeSubmission *ResumeSubmission `gorm:"foreignKey:SubmissionUUID;references:SubmissionUUID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (ExtractedResume) TableName() string {
	return "extracted_resumes"
}

// SliceToJSON Helper function to convert a string slice to datatypes.JSON
func SliceToJSON(s []string) (datatypes.JSON, error) {
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
