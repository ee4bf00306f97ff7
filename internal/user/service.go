package user

import (
	"fmt"

	"github.com/google/uuid"
)

// CreateProvisionalUser 生成一个新的匿名用户ID（UUID v7）。
// 用户统计记录在第一次点击时才会创建。
func CreateProvisionalUser() (string, error) {
	newUUID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("无法生成UUID v7: %w", err)
	}
	return newUUID.String(), nil
}

// IsValidUUID 检查字符串是否为标准格式的UUID
func IsValidUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
