package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response codes carried in ResponseFormat.Code.
const (
	CodeOK   = 0
	CodeFail = 1
)

// ResponseFormat is the envelope of every API response.
type ResponseFormat struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

func failResponse(ctx *gin.Context, status int, msg string, data interface{}) {
	ctx.AbortWithStatusJSON(status, ResponseFormat{
		Code: CodeFail,
		Msg:  msg,
		Data: data,
	})
}

func successResponse(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, ResponseFormat{
		Code: CodeOK,
		Msg:  "ok",
		Data: data,
	})
}
