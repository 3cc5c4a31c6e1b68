// Package response fixes the JSON envelope every HTTP handler replies
// with: {code, data, msg}. The code mirrors the HTTP status so browser
// clients never need to inspect transport errors.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Envelope struct {
	Code int         `json:"code"`
	Data interface{} `json:"data"`
	Msg  string      `json:"msg"`
}

func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, data, "")
}

func Error(c *gin.Context, status int, msg string) {
	write(c, status, gin.H{}, msg)
}

func write(c *gin.Context, status int, data interface{}, msg string) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, Envelope{
		Code: status,
		Data: data,
		Msg:  msg,
	})
}
