package middleware

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// OriginMatcher 判断请求来源是否在允许列表中。
// 列表项可以是精确的 origin、"*"，或者用 /.../ 包裹的正则表达式。
type OriginMatcher struct {
	allowAll bool
	exact    map[string]struct{}
	patterns []*regexp.Regexp
}

// NewOriginMatcher 解析允许列表，正则无法编译时返回错误。
func NewOriginMatcher(entries []string) (*OriginMatcher, error) {
	m := &OriginMatcher{exact: make(map[string]struct{})}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
			continue
		case entry == "*":
			m.allowAll = true
		case len(entry) > 2 && strings.HasPrefix(entry, "/") && strings.HasSuffix(entry, "/"):
			re, err := regexp.Compile(entry[1 : len(entry)-1])
			if err != nil {
				return nil, fmt.Errorf("invalid origin pattern %q: %w", entry, err)
			}
			m.patterns = append(m.patterns, re)
		default:
			m.exact[strings.TrimSuffix(entry, "/")] = struct{}{}
		}
	}
	return m, nil
}

// Allowed 判断 origin 是否被允许
func (m *OriginMatcher) Allowed(origin string) bool {
	if m.allowAll {
		return true
	}
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for _, re := range m.patterns {
		if re.MatchString(origin) {
			return true
		}
	}
	return false
}

// CORS 返回一个 Gin 中间件，只对允许的来源回写 CORS 头。
func CORS(matcher *OriginMatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && matcher.Allowed(origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
			c.Writer.Header().Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
