// Package sanitize 将上游提取服务产出的不可信JSON规范化为完整的简历文档。
// 上游是非确定性的LLM提取器，字段缺失、类型错乱都是常态；本包保证无论
// 输入是什么(null、标量、残缺对象)，输出都是结构完整的ResumeDocument。
package sanitize

import (
	"encoding/json"
	"io"
	"log"

	"resume-stream-go/internal/types"
)

// Sanitizer 简历文档清洗器
// Sanitize是全函数: 任何输入都返回有效文档，内部异常回退到全默认结构
type Sanitizer struct {
	logger *log.Logger
}

// NewSanitizer 创建清洗器
func NewSanitizer(logger *log.Logger) *Sanitizer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Sanitizer{logger: logger}
}

// SanitizeJSON 从原始JSON字节清洗
// 解析失败或清洗过程异常都返回全默认文档，绝不向调用方抛错
func (s *Sanitizer) SanitizeJSON(data []byte) *types.ResumeDocument {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Printf("最终数据JSON解析失败, 返回默认结构: %v", err)
		return types.DefaultResumeDocument()
	}
	return s.Sanitize(raw)
}

// Sanitize 将任意JSON值规范化为完整的简历文档
func (s *Sanitizer) Sanitize(raw interface{}) (doc *types.ResumeDocument) {
	// 兜底: 清洗逻辑自身的任何panic都不允许外泄
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("清洗过程发生内部异常, 返回默认结构: %v", r)
			doc = types.DefaultResumeDocument()
		}
	}()

	doc = types.DefaultResumeDocument()
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return doc
	}

	doc.Name = asString(obj["name"])
	doc.Title = asString(obj["title"])
	doc.RequisitionNumber = asString(obj["requisitionNumber"])
	doc.ProfessionalSummary = asStringList(obj["professionalSummary"])
	doc.EmploymentHistory = normalizeEmploymentHistory(obj["employmentHistory"])
	doc.Education = normalizeEducationList(obj["education"])
	doc.Certifications = normalizeCertificationList(obj["certifications"])
	doc.TechnicalSkills = normalizeTechnicalSkills(obj["technicalSkills"])
	doc.SkillCategories = normalizeSkillCategoryList(obj["skillCategories"])

	// 摘要子章节的新旧字段名调和: 优先summarySections，
	// 回退到subsections时把结果镜像到两个字段，兼容两类消费方
	if isList(obj["summarySections"]) {
		doc.SummarySections = normalizeSubsectionList(obj["summarySections"])
		doc.Subsections = normalizeSubsectionList(obj["subsections"])
	} else {
		fallback := normalizeSubsectionList(obj["subsections"])
		doc.SummarySections = fallback
		doc.Subsections = fallback
	}

	return doc
}

// normalizeEmploymentHistory 逐条规范化工作经历
func normalizeEmploymentHistory(v interface{}) []types.EmploymentEntry {
	entries := []types.EmploymentEntry{}
	for _, item := range asList(v) {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		entries = append(entries, types.EmploymentEntry{
			CompanyName:        asString(obj["companyName"]),
			RoleName:           asString(obj["roleName"]),
			WorkPeriod:         asString(obj["workPeriod"]),
			Location:           asString(obj["location"]),
			Description:        asString(obj["description"]),
			Project:            asString(obj["project"]),
			Client:             asString(obj["client"]),
			Customer:           asString(obj["customer"]),
			ProjectRole:        asString(obj["projectRole"]),
			ProjectDescription: asString(obj["projectDescription"]),
			ProjectEnvironment: asString(obj["projectEnvironment"]),
			ClientProjects:     normalizeClientProjectList(obj["clientProjects"]),
			// 上游偶尔把单条职责输出为标量而非列表，这里包装而不是丢弃
			Responsibilities: asStringListLenient(obj["responsibilities"]),
			KeyTechnologies:  asString(obj["keyTechnologies"]),
			Environment:      asString(obj["environment"]),
			Subsections:      normalizeSubsectionList(obj["subsections"]),
		})
	}
	return entries
}

// normalizeClientProjectList 规范化客户/项目子记录列表
func normalizeClientProjectList(v interface{}) []types.ClientProject {
	projects := []types.ClientProject{}
	for _, item := range asList(v) {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		projects = append(projects, types.ClientProject{
			ClientName:         asString(obj["clientName"]),
			ProjectName:        asString(obj["projectName"]),
			ProjectDescription: asString(obj["projectDescription"]),
			Responsibilities:   asStringListLenient(obj["responsibilities"]),
			Period:             asString(obj["period"]),
		})
	}
	return projects
}

// normalizeSubsectionList 规范化带标题的内容块列表
func normalizeSubsectionList(v interface{}) []types.NamedSubsection {
	subsections := []types.NamedSubsection{}
	for _, item := range asList(v) {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		subsections = append(subsections, types.NamedSubsection{
			Title:   asString(obj["title"]),
			Content: asStringList(obj["content"]),
		})
	}
	return subsections
}

// normalizeEducationList 规范化教育经历列表
func normalizeEducationList(v interface{}) []types.EducationEntry {
	entries := []types.EducationEntry{}
	for _, item := range asList(v) {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		entries = append(entries, types.EducationEntry{
			Degree:      asString(obj["degree"]),
			AreaOfStudy: asString(obj["areaOfStudy"]),
			School:      asString(obj["school"]),
			Location:    asString(obj["location"]),
			Date:        asString(obj["date"]),
			// 缺失视为已授予学位而非未知，产品侧确认过的默认值
			WasAwarded: asBool(obj["wasAwarded"], true),
		})
	}
	return entries
}

// normalizeCertificationList 规范化证书列表
func normalizeCertificationList(v interface{}) []types.CertificationEntry {
	entries := []types.CertificationEntry{}
	for _, item := range asList(v) {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		entries = append(entries, types.CertificationEntry{
			Name:                asString(obj["name"]),
			IssuedBy:            asString(obj["issuedBy"]),
			DateObtained:        asString(obj["dateObtained"]),
			CertificationNumber: asString(obj["certificationNumber"]),
			ExpirationDate:      asString(obj["expirationDate"]),
		})
	}
	return entries
}

// normalizeSkillCategoryList 规范化技能分类列表
func normalizeSkillCategoryList(v interface{}) []types.SkillCategory {
	categories := []types.SkillCategory{}
	for _, item := range asList(v) {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		categories = append(categories, types.SkillCategory{
			CategoryName:  asString(obj["categoryName"]),
			Skills:        asStringList(obj["skills"]),
			SubCategories: normalizeSkillSubCategoryList(obj["subCategories"]),
		})
	}
	return categories
}

// normalizeSkillSubCategoryList 规范化技能子分类列表
func normalizeSkillSubCategoryList(v interface{}) []types.SkillSubCategory {
	subs := []types.SkillSubCategory{}
	for _, item := range asList(v) {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		subs = append(subs, types.SkillSubCategory{
			Name:   asString(obj["name"]),
			Skills: asStringList(obj["skills"]),
		})
	}
	return subs
}

// normalizeTechnicalSkills 规范化按类别分组的技能映射
// 值统一为字符串列表，标量值按单元素列表处理
func normalizeTechnicalSkills(v interface{}) map[string][]string {
	skills := map[string][]string{}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return skills
	}
	for key, val := range obj {
		skills[key] = asStringListLenient(val)
	}
	return skills
}
