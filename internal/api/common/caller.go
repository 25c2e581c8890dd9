package common

import (
	"errors"
	"strconv"

	"github.com/efezeyus/aiogretmen-sub001/internal/core/access"

	"github.com/gofiber/fiber/v3"
)

// Header names the upstream identity proxy sets on every request.
const (
	HeaderStudentID = "X-Student-ID"
	HeaderUserRole  = "X-User-Role"
	HeaderUserGrade = "X-User-Grade"
)

// CallerFromHeaders reads the authenticated identity off the request.
// Role defaults to student; grade is required for students.
func CallerFromHeaders(c fiber.Ctx) (access.Caller, error) {
	caller := access.Caller{
		ID:   c.Get(HeaderStudentID),
		Role: c.Get(HeaderUserRole),
	}
	if caller.ID == "" {
		return access.Caller{}, errors.New("X-Student-ID header is required")
	}
	if caller.Role == "" {
		caller.Role = access.RoleStudent
	}
	switch caller.Role {
	case access.RoleStudent, access.RoleTeacher, access.RoleAdmin:
	default:
		return access.Caller{}, errors.New("unknown role in X-User-Role")
	}

	if g := c.Get(HeaderUserGrade); g != "" {
		grade, err := strconv.Atoi(g)
		if err != nil || grade < 1 || grade > 12 {
			return access.Caller{}, errors.New("X-User-Grade must be a grade between 1 and 12")
		}
		caller.Grade = grade
	}
	if caller.Role == access.RoleStudent && caller.Grade == 0 {
		return access.Caller{}, errors.New("X-User-Grade header is required for students")
	}
	return caller, nil
}
