package services

import (
	"sort"
	"strings"

	"hms/models"

	"github.com/fiam/gounidecode/unidecode"
	"github.com/schollz/closestmatch"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Hàm chuẩn hóa chuỗi: bỏ dấu tiếng Việt, lowercase
func normalizeInput(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ToLower(unidecode.Unidecode(input))
	return input
}

// Tạo đối tượng closestmatch cho danh sách từ khóa
func createMatcher(keywords []string) *closestmatch.ClosestMatch {
	return closestmatch.New(keywords, []int{2, 3})
}

// Tính độ tương đồng giữa hai chuỗi
func calculateSimilarity(a, b string) float64 {
	distance := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	maxLen := float64(len(a))
	if float64(len(b)) > maxLen {
		maxLen = float64(len(b))
	}

	if maxLen == 0 {
		return 1.0
	}

	return 1.0 - float64(distance)/maxLen
}

type scoredStudent struct {
	student models.Student
	score   float64
}

// SearchStudents tìm sinh viên theo tên/mã/email/số phòng, chịu được
// gõ thiếu dấu và sai chính tả nhẹ
func SearchStudents(students []models.Student, query string) []models.Student {
	normalizedQuery := normalizeInput(query)
	if normalizedQuery == "" {
		return students
	}

	// Danh sách tên chuẩn hóa cho closestmatch
	names := make([]string, 0, len(students))
	for _, s := range students {
		names = append(names, normalizeInput(s.Name))
	}
	cm := createMatcher(names)
	bestName := cm.Closest(normalizedQuery)

	var scored []scoredStudent
	for _, s := range students {
		score := scoreStudent(normalizedQuery, bestName, &s)
		if score > 0 {
			scored = append(scored, scoredStudent{student: s, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	result := make([]models.Student, 0, len(scored))
	for _, sc := range scored {
		result = append(result, sc.student)
	}
	return result
}

// Tính điểm phù hợp cho sinh viên
func scoreStudent(query, bestName string, s *models.Student) float64 {
	name := normalizeInput(s.Name)
	regNo := normalizeInput(s.RegNo)
	email := normalizeInput(s.Email)
	phone := normalizeInput(s.PhoneNumber)

	// Khớp chính xác mã/điện thoại ăn điểm tuyệt đối
	if regNo == query || phone == query {
		return 100
	}

	score := 0.0
	if strings.Contains(name, query) || strings.Contains(query, name) {
		score += 50
	}
	if strings.Contains(regNo, query) {
		score += 40
	}
	if strings.Contains(email, query) {
		score += 30
	}
	if s.Room != nil && normalizeInput(s.Room.RoomNumber) == query {
		score += 35
	}

	// Tên gần đúng theo levenshtein, ngưỡng 60%
	if sim := calculateSimilarity(query, name); sim >= 0.6 {
		score += sim * 25
	}
	if bestName != "" && name == bestName {
		score += 10
	}

	return score
}
