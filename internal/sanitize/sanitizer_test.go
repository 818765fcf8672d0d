package sanitize

import (
	"encoding/json"
	"testing"

	"resume-stream-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTotalFunction(t *testing.T) {
	s := NewSanitizer(nil)

	// 任何输入都必须产出结构完整的文档
	inputs := []interface{}{
		nil,
		"just a string",
		42.5,
		true,
		[]interface{}{"a", "b"},
		map[string]interface{}{},
	}
	for _, input := range inputs {
		doc := s.Sanitize(input)
		require.NotNil(t, doc, "输入 %v", input)
		assert.NotNil(t, doc.ProfessionalSummary)
		assert.NotNil(t, doc.EmploymentHistory)
		assert.NotNil(t, doc.Education)
		assert.NotNil(t, doc.Certifications)
		assert.NotNil(t, doc.TechnicalSkills)
		assert.NotNil(t, doc.SkillCategories)
		assert.NotNil(t, doc.SummarySections)
		assert.NotNil(t, doc.Subsections)
	}
}

func TestSanitizeJSONMalformedReturnsDefault(t *testing.T) {
	s := NewSanitizer(nil)

	doc := s.SanitizeJSON([]byte(`{"name": `))
	assert.Equal(t, types.DefaultResumeDocument(), doc)

	doc = s.SanitizeJSON([]byte(`null`))
	assert.Equal(t, types.DefaultResumeDocument(), doc)
}

func TestSanitizeScalarFields(t *testing.T) {
	s := NewSanitizer(nil)

	doc := s.SanitizeJSON([]byte(`{
		"name": "A. Lee",
		"title": "Senior Engineer",
		"requisitionNumber": "REQ-1234",
		"professionalSummary": ["ten years of Go", 42, "distributed systems"]
	}`))

	assert.Equal(t, "A. Lee", doc.Name)
	assert.Equal(t, "Senior Engineer", doc.Title)
	assert.Equal(t, "REQ-1234", doc.RequisitionNumber)
	// 列表中的非字符串元素丢弃，不整体失败
	assert.Equal(t, []string{"ten years of Go", "distributed systems"}, doc.ProfessionalSummary)
}

func TestSanitizeWrongTypeFieldsFallBack(t *testing.T) {
	s := NewSanitizer(nil)

	doc := s.SanitizeJSON([]byte(`{
		"name": 123,
		"title": null,
		"professionalSummary": "not a list",
		"employmentHistory": {"not": "a list"},
		"technicalSkills": ["not", "a", "map"]
	}`))

	assert.Equal(t, "", doc.Name)
	assert.Equal(t, "", doc.Title)
	assert.Equal(t, []string{}, doc.ProfessionalSummary)
	assert.Equal(t, []types.EmploymentEntry{}, doc.EmploymentHistory)
	assert.Equal(t, map[string][]string{}, doc.TechnicalSkills)
}

func TestSanitizeWasAwardedDefaultsTrue(t *testing.T) {
	s := NewSanitizer(nil)

	doc := s.SanitizeJSON([]byte(`{
		"education": [
			{"degree": "BSc", "school": "State University"},
			{"degree": "MSc", "school": "Tech Institute", "wasAwarded": false},
			{"degree": "PhD", "school": "Research University", "wasAwarded": "nonsense"}
		]
	}`))

	require.Len(t, doc.Education, 3)
	// 缺失默认为已授予
	assert.True(t, doc.Education[0].WasAwarded)
	// 显式false被保留
	assert.False(t, doc.Education[1].WasAwarded)
	// 类型错乱回退到默认值
	assert.True(t, doc.Education[2].WasAwarded)
}

func TestSanitizeResponsibilitiesScalarWrapped(t *testing.T) {
	s := NewSanitizer(nil)

	doc := s.SanitizeJSON([]byte(`{
		"employmentHistory": [
			{"companyName": "Acme", "responsibilities": "did everything"},
			{"companyName": "Globex", "responsibilities": ["built services", "ran oncall"]},
			{"companyName": "Initech", "responsibilities": 42}
		]
	}`))

	require.Len(t, doc.EmploymentHistory, 3)
	// 标量字符串包装为单元素列表
	assert.Equal(t, []string{"did everything"}, doc.EmploymentHistory[0].Responsibilities)
	assert.Equal(t, []string{"built services", "ran oncall"}, doc.EmploymentHistory[1].Responsibilities)
	// 非字符串标量丢弃
	assert.Equal(t, []string{}, doc.EmploymentHistory[2].Responsibilities)
}

func TestSanitizeSummarySectionsPreferred(t *testing.T) {
	s := NewSanitizer(nil)

	// summarySections存在时两个字段各自独立规范化
	doc := s.SanitizeJSON([]byte(`{
		"summarySections": [{"title": "Core", "content": ["Go", "SQL"]}],
		"subsections": [{"title": "Other", "content": ["Docs"]}]
	}`))

	require.Len(t, doc.SummarySections, 1)
	assert.Equal(t, "Core", doc.SummarySections[0].Title)
	require.Len(t, doc.Subsections, 1)
	assert.Equal(t, "Other", doc.Subsections[0].Title)
}

func TestSanitizeSubsectionsMirroredWhenSummarySectionsMissing(t *testing.T) {
	s := NewSanitizer(nil)

	doc := s.SanitizeJSON([]byte(`{
		"subsections": [{"title": "Legacy", "content": ["item"]}]
	}`))

	// 回退结果镜像到两个字段
	require.Len(t, doc.SummarySections, 1)
	assert.Equal(t, "Legacy", doc.SummarySections[0].Title)
	assert.Equal(t, doc.SummarySections, doc.Subsections)
}

func TestSanitizeTechnicalSkillsMapValues(t *testing.T) {
	s := NewSanitizer(nil)

	doc := s.SanitizeJSON([]byte(`{
		"technicalSkills": {
			"languages": ["Go", "Python"],
			"databases": "MySQL",
			"junk": 7
		}
	}`))

	assert.Equal(t, []string{"Go", "Python"}, doc.TechnicalSkills["languages"])
	// 标量值按单元素列表处理
	assert.Equal(t, []string{"MySQL"}, doc.TechnicalSkills["databases"])
	assert.Equal(t, []string{}, doc.TechnicalSkills["junk"])
}

func TestSanitizeSkillCategoriesNested(t *testing.T) {
	s := NewSanitizer(nil)

	doc := s.SanitizeJSON([]byte(`{
		"skillCategories": [
			{
				"categoryName": "Backend",
				"skills": ["Go"],
				"subCategories": [{"name": "Storage", "skills": ["MySQL", "Redis"]}]
			},
			"not an object"
		]
	}`))

	require.Len(t, doc.SkillCategories, 1)
	assert.Equal(t, "Backend", doc.SkillCategories[0].CategoryName)
	require.Len(t, doc.SkillCategories[0].SubCategories, 1)
	assert.Equal(t, []string{"MySQL", "Redis"}, doc.SkillCategories[0].SubCategories[0].Skills)
}

func TestSanitizeIdempotent(t *testing.T) {
	s := NewSanitizer(nil)

	doc := s.SanitizeJSON([]byte(`{
		"name": "A. Lee",
		"education": [{"degree": "BSc", "wasAwarded": false}],
		"employmentHistory": [{"companyName": "Acme", "responsibilities": "one thing"}]
	}`))

	// 把清洗结果再序列化回JSON重新清洗，输出不再变化
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	doc2 := s.SanitizeJSON(data)
	assert.Equal(t, doc, doc2)
}
