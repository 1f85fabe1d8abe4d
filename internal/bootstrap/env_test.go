package bootstrap

import (
	"os"
	"testing"
)

// unsetEnv 清除变量并在测试结束后恢复
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	prev, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, prev)
		}
	})
}
