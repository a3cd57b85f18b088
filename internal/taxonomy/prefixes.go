package taxonomy

import "fmt"

// blockPrefixes maps the 17 known block names to the short prefixes used in
// feature column names. The prefixes are a published contract: downstream
// consumers address columns as {prefix}_{metric}.
var blockPrefixes = map[string]string{
	"Создание заявки":                 "request",
	"Просмотр и управление заявками":  "req_manage",
	"Профиль":                         "profile",
	"Навигация":                       "nav",
	"Уведомления":                     "notif",
	"Опросы и собрания собственников": "poll_oss",
	"Баллы и поощрения":               "rewards",
	"Мой дом":                         "my_home",
	"Услуги партнеров":                "partners",
	"Управление транспортом":          "transport",
	"Просмотр объявлений":             "ann_view",
	"Умные решения":                   "smart",
	"Техподдержка":                    "support",
	"Гостевой доступ":                 "guest",
	"Городские сервисы":               "city_serv",
	"Создание адреса":                 "address",
	"Создание объявления":             "ann_create",
}

// prefixFor returns the column prefix for a block name. Unknown blocks get a
// positional fallback so a document extension cannot collide with the fixed
// prefixes.
func prefixFor(name string, position int) string {
	if p, ok := blockPrefixes[name]; ok {
		return p
	}
	return fmt.Sprintf("block_%d", position)
}
