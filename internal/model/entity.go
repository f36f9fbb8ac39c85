package model

// EntityKey 参评单位的复合主键：学校代码 + 班别
type EntityKey struct {
	OrgCode    string `json:"orgCode"`
	GroupLabel string `json:"groupLabel"`
}

// String 用于日志与告警
func (k EntityKey) String() string {
	if k.GroupLabel == "" {
		return k.OrgCode
	}
	return k.OrgCode + "/" + k.GroupLabel
}

// Entity 参评单位（学校/班级），一次计算内不可变
type Entity struct {
	Key     EntityKey `json:"key"`
	OrgName string    `json:"orgName"`
	Teacher string    `json:"teacher"`
	RowNo   int       `json:"rowNo"` // Excel 原始行号（从 2 开始）

	// IsSpecialCase 是否为指定加分单位（按学校名称精确匹配）
	IsSpecialCase bool `json:"isSpecialCase"`
}
