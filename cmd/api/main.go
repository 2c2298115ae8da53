package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/verihr/verihr-backend-go/internal/config"
	appHTTP "github.com/verihr/verihr-backend-go/internal/handler/http"
	"github.com/verihr/verihr-backend-go/internal/pkg/crypto"
	"github.com/verihr/verihr-backend-go/internal/pkg/database"
	"github.com/verihr/verihr-backend-go/internal/pkg/face"
	"github.com/verihr/verihr-backend-go/internal/pkg/jwt"
	"github.com/verihr/verihr-backend-go/internal/repository/postgresql"
	attendanceService "github.com/verihr/verihr-backend-go/internal/service/attendance"
	policyService "github.com/verihr/verihr-backend-go/internal/service/policy"
	verificationService "github.com/verihr/verihr-backend-go/internal/service/verification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	dsn := cfg.DatabaseURL()
	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}

	templateRepo := postgresql.NewTemplateRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	policyRepo := postgresql.NewPolicyRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	auditRepo := postgresql.NewAuditRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	templateCipher, err := crypto.NewCipherFromHex(cfg.Biometric.TemplateMasterKey)
	if err != nil {
		log.Fatal("Failed to initialize template cipher:", err)
	}

	matcher := face.NewMatcher(
		cfg.Biometric.MaxDistance,
		cfg.Biometric.MatchThreshold,
		cfg.Biometric.HighThreshold,
	)
	liveness := face.NewLivenessEvaluator(
		cfg.Biometric.MinLivenessFrames,
		cfg.Biometric.MinMovementPx,
	)

	verificationSvc := verificationService.NewVerificationService(
		templateRepo,
		attendanceRepo,
		policyRepo,
		employeeRepo,
		auditRepo,
		nil,
		templateCipher,
		matcher,
		liveness,
		cfg.Biometric.VerificationGateTimeout,
		verificationService.QualityGate{
			MinSharpness:            cfg.Biometric.MinSharpness,
			MinBrightness:           cfg.Biometric.MinBrightness,
			MinContrast:             cfg.Biometric.MinContrast,
			MinDetectionConfidence:  cfg.Biometric.MinDetectionConfidence,
			ReviewBelowDetectionCnf: cfg.Biometric.ReviewDetectionConfid,
		},
	)
	attendanceSvc := attendanceService.NewService(attendanceRepo)
	policySvc := policyService.NewService(policyRepo)

	verificationHandler := appHTTP.NewVerificationHandler(verificationSvc)
	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc)
	policyHandler := appHTTP.NewPolicyHandler(policySvc)

	router := appHTTP.NewRouter(
		JWTService,
		verificationHandler,
		attendanceHandler,
		policyHandler,
	)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	fmt.Printf("Server running at http://localhost%s\n", port)
	if err := http.ListenAndServe(port, router); err != nil {
		fmt.Println("Server error:", err)
	}
}
