package types

// ResumeDocument 规范化后的简历文档结构
// 经过清洗后所有字段保证存在且容器类型正确，缺失内容以零值填充
type ResumeDocument struct {
	Name                string               `json:"name"`
	Title               string               `json:"title"`
	RequisitionNumber   string               `json:"requisitionNumber"`
	ProfessionalSummary []string             `json:"professionalSummary"`
	SummarySections     []NamedSubsection    `json:"summarySections"`
	Subsections         []NamedSubsection    `json:"subsections"`
	EmploymentHistory   []EmploymentEntry    `json:"employmentHistory"`
	Education           []EducationEntry     `json:"education"`
	Certifications      []CertificationEntry `json:"certifications"`
	TechnicalSkills     map[string][]string  `json:"technicalSkills"`
	SkillCategories     []SkillCategory      `json:"skillCategories"`
}

// NamedSubsection 带标题的内容块，用于专业摘要子章节和岗位内子章节
type NamedSubsection struct {
	Title   string   `json:"title"`
	Content []string `json:"content"`
}

// EmploymentEntry 一段工作经历
type EmploymentEntry struct {
	CompanyName        string            `json:"companyName"`
	RoleName           string            `json:"roleName"`
	WorkPeriod         string            `json:"workPeriod"`
	Location           string            `json:"location"`
	Description        string            `json:"description"`
	Project            string            `json:"project"`
	Client             string            `json:"client"`
	Customer           string            `json:"customer"`
	ProjectRole        string            `json:"projectRole"`
	ProjectDescription string            `json:"projectDescription"`
	ProjectEnvironment string            `json:"projectEnvironment"`
	ClientProjects     []ClientProject   `json:"clientProjects"`
	Responsibilities   []string          `json:"responsibilities"`
	KeyTechnologies    string            `json:"keyTechnologies"`
	Environment        string            `json:"environment"`
	Subsections        []NamedSubsection `json:"subsections"`
}

// ClientProject 一段工作经历内针对某客户/项目的子记录
type ClientProject struct {
	ClientName         string   `json:"clientName"`
	ProjectName        string   `json:"projectName"`
	ProjectDescription string   `json:"projectDescription"`
	Responsibilities   []string `json:"responsibilities"`
	Period             string   `json:"period"`
}

// EducationEntry 一条教育经历
type EducationEntry struct {
	Degree      string `json:"degree"`
	AreaOfStudy string `json:"areaOfStudy"`
	School      string `json:"school"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	// WasAwarded 缺失时默认为true: 未标注视为已授予学位，这是产品侧约定
	WasAwarded bool `json:"wasAwarded"`
}

// CertificationEntry 一条证书记录
type CertificationEntry struct {
	Name                string `json:"name"`
	IssuedBy            string `json:"issuedBy"`
	DateObtained        string `json:"dateObtained"`
	CertificationNumber string `json:"certificationNumber"`
	ExpirationDate      string `json:"expirationDate"`
}

// SkillCategory 技能分类，可带嵌套子分类
type SkillCategory struct {
	CategoryName  string             `json:"categoryName"`
	Skills        []string           `json:"skills"`
	SubCategories []SkillSubCategory `json:"subCategories"`
}

// SkillSubCategory 技能子分类
type SkillSubCategory struct {
	Name   string   `json:"name"`
	Skills []string `json:"skills"`
}

// DefaultResumeDocument 返回全默认值的简历文档
// 与上游提取服务的default结构保持一致，清洗失败时作为兜底输出
func DefaultResumeDocument() *ResumeDocument {
	return &ResumeDocument{
		ProfessionalSummary: []string{},
		SummarySections:     []NamedSubsection{},
		Subsections:         []NamedSubsection{},
		EmploymentHistory:   []EmploymentEntry{},
		Education:           []EducationEntry{},
		Certifications:      []CertificationEntry{},
		TechnicalSkills:     map[string][]string{},
		SkillCategories:     []SkillCategory{},
	}
}
