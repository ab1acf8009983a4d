package milvus

import (
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// DefaultCollection 页面元素集合
	DefaultCollection = "healer_elements"

	FieldID          = "id"
	FieldVector      = "vector"
	FieldText        = "text"
	FieldFingerprint = "fingerprint"

	// 描述串长度上限与 VarChar 上限一致
	maxTextLength = 65535
	// md5 十六进制
	fingerprintLength = 32
)

// ElementsSchema 页面元素集合 Schema：自增主键、向量、描述串及其指纹
func ElementsSchema(collection string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: collection,
		Description:    "UI element descriptors for locator healing",
		AutoID:         true,
		Fields: []*entity.Field{
			{
				Name:       FieldID,
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     true,
			},
			{
				Name:     FieldVector,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					entity.TypeParamDim: strconv.Itoa(dim),
				},
			},
			{
				Name:     FieldText,
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					entity.TypeParamMaxLength: strconv.Itoa(maxTextLength),
				},
			},
			{
				Name:     FieldFingerprint,
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					entity.TypeParamMaxLength: strconv.Itoa(fingerprintLength),
				},
			},
		},
	}
}
