package cache

import (
	"strconv"
	"strings"
)

// Cache key builders. Versioned prefixes so Invalidate can target one
// resource family at a time.

const (
	PrefixExams    = "exams:"
	PrefixSections = "sections:"
	PrefixResults  = "results:"
	PrefixStats    = "stats:"
	PrefixMe       = "me:"
)

func BuildExamsListKey(limit int, sectionID, query *string, cursor string) string {
	s := ""
	if sectionID != nil {
		s = strings.TrimSpace(*sectionID)
	}
	q := ""
	if query != nil {
		q = strings.ToLower(strings.TrimSpace(*query))
	}

	return PrefixExams + "list:v1:limit=" + strconv.Itoa(limit) +
		":section=" + s +
		":q=" + q +
		":cursor=" + cursor
}

func BuildExamKey(id string) string {
	return PrefixExams + "one:v1:" + id
}

func BuildSectionsListKey() string {
	return PrefixSections + "list:v1"
}

func BuildSectionKey(id string) string {
	return PrefixSections + "one:v1:" + id
}

func BuildMyResultsKey(limit int, cursor string) string {
	return PrefixResults + "mine:v1:limit=" + strconv.Itoa(limit) + ":cursor=" + cursor
}

func BuildStatsKey() string {
	return PrefixStats + "admin:v1"
}

func BuildMeKey() string {
	return PrefixMe + "v1"
}
