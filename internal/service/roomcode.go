package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// RoomCodeLength 是房间码的固定长度
	RoomCodeLength = 6
	// maxCodeAttempts 限制冲突重试次数，码空间接近耗尽时明确失败而不是无限重试
	maxCodeAttempts = 10
)

// CodeGenerator 生成一个候选房间码，唯一性由 RoomRepository.Create 保证
type CodeGenerator func() (string, error)

// RandomRoomCode 从 36 个字符中均匀随机生成 6 位房间码
func RandomRoomCode() (string, error) {
	max := big.NewInt(int64(len(roomCodeAlphabet)))
	b := make([]byte, RoomCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random room code: %w", err)
		}
		b[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// NormalizeRoomCode 去掉首尾空白并转为大写
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// checkRoomCode 只检查结构，不检查房间是否存在。code 必须已规范化。
func checkRoomCode(code string) error {
	if code == "" {
		return ErrInvalidRoomCode
	}
	if len(code) != RoomCodeLength {
		return ErrRoomCodeLength
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(roomCodeAlphabet, code[i]) < 0 {
			return ErrInvalidRoomCode
		}
	}
	return nil
}
