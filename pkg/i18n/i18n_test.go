package i18n

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCataloguesComplete(t *testing.T) {
	en := reflect.ValueOf(messagesEN)
	zh := reflect.ValueOf(messagesZH)
	for i := 0; i < en.NumField(); i++ {
		name := en.Type().Field(i).Name
		assert.NotEmpty(t, en.Field(i).String(), "EN %s", name)
		assert.NotEmpty(t, zh.Field(i).String(), "ZH %s", name)
		assert.Equal(t, strings.Count(en.Field(i).String(), "%"), strings.Count(zh.Field(i).String(), "%"), "verb count %s", name)
	}
}

func TestSetLanguage(t *testing.T) {
	defer SetLanguage(LangEN)

	SetLanguage(LangZH)
	assert.Equal(t, LangZH, GetLanguage())
	assert.Equal(t, messagesZH.Starting, M().Starting)
	assert.Equal(t, messagesZH.ShuttingDown, Get("ShuttingDown"))

	SetLanguage("fr")
	assert.Equal(t, LangEN, GetLanguage())
	assert.Equal(t, "NoSuchKey", Get("NoSuchKey"))
}
