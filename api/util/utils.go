package apiutil

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

func GetIPFromContext(c *gin.Context) (*string, error) {
	ip := c.Request.Header.Get("X-Real-IP")
	if len(ip) > 0 {
		return &ip, nil
	}

	ip = c.Request.Header.Get("X-Forwarded-For")
	ipList := strings.Split(ip, ",")
	if len(strings.TrimSpace(ipList[0])) > 0 {
		first := strings.TrimSpace(ipList[0])
		return &first, nil
	}

	// If there is no "X-Real-IP" or "X-Forwarded-For", get IP from "RemoteAddr"
	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return nil, err
	}
	return &ip, nil
}

// IsLocalhost reports whether the request host is a loopback name or address
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host == "localhost" || host == "::1" || strings.HasPrefix(host, "127.")
}
