package logger

import (
	"time"

	"go.uber.org/zap"
)

func RequestID(v string) zap.Field       { return zap.String("request_id", v) }
func Method(v string) zap.Field          { return zap.String("method", v) }
func Route(v string) zap.Field           { return zap.String("route", v) }
func Path(v string) zap.Field            { return zap.String("path", v) }
func Status(v int) zap.Field             { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func Bytes(v int) zap.Field              { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field        { return zap.String("client_ip", v) }

func Subject(v string) zap.Field   { return zap.String("subject", v) }
func UserID(v string) zap.Field    { return zap.String("user_id", v) }
func GroupID(v string) zap.Field   { return zap.String("group_id", v) }
func PaymentID(v string) zap.Field { return zap.String("payment_id", v) }

func Op(v string) zap.Field   { return zap.String("op", v) }
func Err(err error) zap.Field { return zap.Error(err) }
func Count(v int) zap.Field   { return zap.Int("count", v) }
