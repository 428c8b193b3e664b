package logger

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var displayLevel string = "info"
var level string = displayLevel

var zapCfg zap.Config
var zapLogger *zap.Logger
var sugar *zap.SugaredLogger

func GetLevel() string {
	return level
}

func SetDisplayLevel(lvl string) {
	displayLevel = lvl
	InitLogger(true)
	Infof("Set logger display level to %v\n", displayLevel)
}

func SetLevel(lvl string) {
	if lvl == "" {
		level = "debug"
	} else {
		level = lvl
	}
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		InitLogger(false)
		zapCfg.Level.SetLevel(parsed)
	}
	Debugf("Set logger level to %v\n", level)
}

func InitLogger(force bool) {
	if !force && zapLogger != nil {
		return
	}
	cfgString := fmt.Sprintf(`{
		"level": "%s",
		"encoding": "console",
		"outputPaths": ["stdout"],
		"errorOutputPaths": ["stderr"],
		"encoderConfig": {
		  "messageKey": "message",
		  "levelKey": "level",
		  "levelEncoder": "lowercase"
		}
	  }`, displayLevel)
	rawJSON := []byte(cfgString)

	if err := json.Unmarshal(rawJSON, &zapCfg); err != nil {
		panic(err)
	}
	var err error
	zapLogger, err = zapCfg.Build(zap.WithCaller(false))
	if err != nil {
		fmt.Printf("Error instantiating logger with config %v\n", cfgString)
		return
	}
	sugar = zapLogger.Sugar()
}

func Log(args ...interface{}) {
	if level == "error" {
		Error(args...)
	} else if level == "debug" {
		Debug(args...)
	} else {
		Info(args...)
	}
}

func Debug(args ...interface{}) {
	InitLogger(false)
	sugar.Debug(args...)
}

func Info(args ...interface{}) {
	InitLogger(false)
	sugar.Info(args...)
}

func Warn(args ...interface{}) {
	InitLogger(false)
	sugar.Warn(args...)
}

func Error(args ...interface{}) {
	InitLogger(false)
	sugar.Error(args...)
}

func Fatal(args ...interface{}) {
	InitLogger(false)
	sugar.Fatal(args...)
}

func Logf(template string, args ...interface{}) {
	if level == "error" {
		Errorf(template, args...)
	} else if level == "debug" {
		Debugf(template, args...)
	} else {
		Infof(template, args...)
	}
}

func Debugf(template string, args ...interface{}) {
	InitLogger(false)
	sugar.Debugf(template, args...)
}

func Infof(template string, args ...interface{}) {
	InitLogger(false)
	sugar.Infof(template, args...)
}

func Warnf(template string, args ...interface{}) {
	InitLogger(false)
	sugar.Warnf(template, args...)
}

func Errorf(template string, args ...interface{}) {
	InitLogger(false)
	sugar.Errorf(template, args...)
}
