package models

import "time"

// Student defines the student profile based on the 'students' table.
// Each profile is owned by exactly one school.
type Student struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"userId" db:"user_id"`
	SchoolID   string    `json:"schoolId" db:"school_id"`
	Admission  string    `json:"admissionNumber" db:"admission_number"`
	ClassName  string    `json:"className" db:"class_name"`
	EnrolledAt time.Time `json:"enrolledAt" db:"enrolled_at"`
	User       *User     `json:"user,omitempty"` // Relation, no db tag
}

// Parent defines the parent/guardian profile based on the 'parents' table
type Parent struct {
	ID       string `json:"id" db:"id"`
	UserID   string `json:"userId" db:"user_id"`
	SchoolID string `json:"schoolId" db:"school_id"`
	User     *User  `json:"user,omitempty"` // Relation, no db tag
}

// Teacher defines the teacher profile based on the 'teachers' table
type Teacher struct {
	ID       string `json:"id" db:"id"`
	UserID   string `json:"userId" db:"user_id"`
	SchoolID string `json:"schoolId" db:"school_id"`
	Subject  string `json:"subject,omitempty" db:"subject"`
	User     *User  `json:"user,omitempty"` // Relation, no db tag
}

// Administrator defines the school admin profile based on the 'administrators' table
type Administrator struct {
	ID       string `json:"id" db:"id"`
	UserID   string `json:"userId" db:"user_id"`
	SchoolID string `json:"schoolId" db:"school_id"`
	Title    string `json:"title,omitempty" db:"title"`
	User     *User  `json:"user,omitempty"` // Relation, no db tag
}

// StudentParent joins a student to a parent within one school,
// based on the 'student_parents' table. A parent may have several
// children and a child may have several guardians.
type StudentParent struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"studentId" db:"student_id"`
	ParentID  string    `json:"parentId" db:"parent_id"`
	SchoolID  string    `json:"schoolId" db:"school_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
