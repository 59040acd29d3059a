package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course identifies a course whose materials feed a dedicated vector index.
type Course struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CourseID   string             `bson:"course_id" json:"course_id"`
	CourseName string             `bson:"course_name" json:"course_name"`
}

// Enrolment whitelists a student email for a course.
type Enrolment struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CourseID     string             `bson:"course_id" json:"course_id"`
	StudentEmail string             `bson:"student_email" json:"student_email"`
	Enrolled     bool               `bson:"enrolled" json:"enrolled"`
}

// AdminRequest is a pending request for admin access.
type AdminRequest struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"user_id"`
	Email       string             `bson:"email" json:"email"`
	Reason      string             `bson:"reason" json:"reason"`
	RequestDate time.Time          `bson:"request_date" json:"request_date"`
}
