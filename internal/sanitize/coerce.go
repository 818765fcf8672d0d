package sanitize

// 类型矫正辅助函数: 每个函数对错误类型的输入返回对应容器的零值，
// 保证清洗结果的容器类型永远正确

// asString 取字符串，类型不符返回空串
func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// asBool 取布尔值，缺失或类型不符返回给定默认值
func asBool(v interface{}, def bool) bool {
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// isList 判断值是否为JSON列表
func isList(v interface{}) bool {
	_, ok := v.([]interface{})
	return ok
}

// asList 取列表，类型不符返回nil
func asList(v interface{}) []interface{} {
	list, _ := v.([]interface{})
	return list
}

// asStringList 取字符串列表，非字符串元素被剔除，非列表输入返回空列表
func asStringList(v interface{}) []string {
	result := []string{}
	for _, item := range asList(v) {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

// asStringListLenient 宽松版本: 标量字符串被包装为单元素列表而不是丢弃
func asStringListLenient(v interface{}) []string {
	if s, ok := v.(string); ok {
		return []string{s}
	}
	return asStringList(v)
}
