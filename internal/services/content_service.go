package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/serenablake/practice-site/internal/models"
	"github.com/serenablake/practice-site/internal/storage"
)

var ErrInvalidContent = errors.New("invalid site content")

const siteContentFile = "site.json"

// ContentService serves the page content kept in DATA_DIR/site.json. The
// file is created from DefaultSiteContent on first start.
type ContentService struct {
	mu      sync.RWMutex
	store   *storage.JSONStore
	content models.SiteContent
}

func NewContentService(dataDir string) (*ContentService, error) {
	store, err := storage.NewJSONStore(dataDir, siteContentFile)
	if err != nil {
		return nil, err
	}
	s := &ContentService{store: store}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the content file.
func (s *ContentService) Reload() error {
	var content models.SiteContent
	if _, err := s.store.LoadOrSeed(&content, DefaultSiteContent()); err != nil {
		return fmt.Errorf("load site content: %w", err)
	}
	if problems := content.Validate(); len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidContent, joinProblems(problems))
	}

	s.mu.Lock()
	s.content = content
	s.mu.Unlock()
	return nil
}

// Content returns the current page content.
func (s *ContentService) Content() models.SiteContent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

func joinProblems(problems map[string]string) string {
	keys := make([]string, 0, len(problems))
	for k := range problems {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+problems[k])
	}
	return strings.Join(parts, "; ")
}

// DefaultSiteContent is the practice's published copy.
func DefaultSiteContent() models.SiteContent {
	return models.SiteContent{
		Metadata: models.PageMetadata{
			Title:       "Dr. Serena Blake - Clinical Psychologist | Los Angeles Therapy",
			Description: "Licensed Clinical Psychologist in Los Angeles specializing in anxiety, relationships, and trauma recovery. Compassionate, evidence-based therapy with Dr. Serena Blake, PsyD.",
			Keywords: []string{
				"therapist Los Angeles",
				"clinical psychologist",
				"anxiety therapy",
				"relationship counseling",
				"trauma recovery",
				"Dr. Serena Blake",
			},
			OpenGraph: models.OpenGraph{
				Title:       "Dr. Serena Blake - Clinical Psychologist",
				Description: "Compassionate, evidence-based therapy in Los Angeles. Specializing in anxiety, relationships, and trauma recovery.",
				Type:        "website",
			},
		},
		Practice: models.Practice{
			Name:            "Dr. Serena Blake",
			Credentials:     "PsyD",
			Title:           "Clinical Psychologist",
			City:            "Los Angeles, CA",
			Address:         "1287 Maplewood Drive",
			PostalCode:      "90026",
			Phone:           "(323) 555-0192",
			Email:           "serena@blakepsychology.com",
			YearsExperience: 8,
			SessionsCount:   "500+",
			PhotoURL:        "https://images.pexels.com/photos/5699456/pexels-photo-5699456.jpeg?auto=compress&cs=tinysrgb&w=600",
			Bio: []string{
				"Dr. Serena Blake is a licensed clinical psychologist (PsyD) based in Los Angeles, CA, with eight years of experience and over 500 client sessions. She blends evidence-based approaches, like cognitive-behavioral therapy and mindfulness, with compassionate, personalized care to help you overcome anxiety, strengthen relationships, and heal from trauma.",
				"Whether you meet in her Maplewood Drive office or connect virtually via Zoom, Dr. Blake is committed to creating a safe, supportive space for you to thrive.",
			},
		},
		Hero: models.Hero{
			Headline:      "Find Your Path to",
			Highlight:     "Mental Wellness",
			Subheadline:   "Compassionate, evidence-based therapy to help you overcome anxiety, strengthen relationships, and heal from trauma in a safe, supportive environment.",
			BackgroundURL: "https://images.pexels.com/photos/4101143/pexels-photo-4101143.jpeg?auto=compress&cs=tinysrgb&w=1600",
			CallToAction:  "Book a Free Consultation",
		},
		OfficeHours: []models.OfficeHours{
			{Kind: "In-Person Sessions", Days: "Tuesday & Thursday", Hours: "10 AM - 6 PM"},
			{Kind: "Virtual Sessions", Days: "Monday, Wednesday & Friday", Hours: "1 PM - 5 PM"},
		},
		Services: []models.Service{
			{
				Title:       "Anxiety & Stress Management",
				Description: "Learn evidence-based techniques to manage anxiety, reduce stress, and develop healthy coping strategies. Through cognitive-behavioral therapy and mindfulness practices, we'll work together to help you regain control and find peace in daily life.",
				Price:       "$200 per session",
				ImageURL:    "https://images.pexels.com/photos/3771115/pexels-photo-3771115.jpeg?auto=compress&cs=tinysrgb&w=500",
				Icon:        "brain",
			},
			{
				Title:       "Relationship Counseling",
				Description: "Strengthen communication, rebuild trust, and deepen intimacy in your relationships. Whether you're facing challenges or seeking to enhance your connection, we'll explore patterns and develop tools for lasting positive change.",
				Price:       "$240 per session",
				ImageURL:    "https://images.pexels.com/photos/1024993/pexels-photo-1024993.jpeg?auto=compress&cs=tinysrgb&w=500",
				Icon:        "heart",
			},
			{
				Title:       "Trauma Recovery",
				Description: "Heal from past traumatic experiences in a safe, supportive environment. Using trauma-informed approaches, we'll work at your pace to process difficult experiences and develop resilience for moving forward with confidence.",
				Price:       "$200 per session",
				ImageURL:    "https://images.pexels.com/photos/6932557/pexels-photo-6932557.jpeg?auto=compress&cs=tinysrgb&w=500",
				Icon:        "shield",
			},
		},
		FAQs: []models.FAQ{
			{
				Question: "Do you accept insurance?",
				Answer:   "I don't directly accept insurance, but I provide detailed superbills that you can submit to your insurance company for potential reimbursement. Many clients find they can recover a significant portion of their session fees through out-of-network benefits.",
			},
			{
				Question: "Are online sessions available?",
				Answer:   "Yes! I offer secure virtual sessions via Zoom on Mondays, Wednesdays, and Fridays from 1 PM to 5 PM. Online therapy can be just as effective as in-person sessions and offers greater flexibility for busy schedules.",
			},
			{
				Question: "What is your cancellation policy?",
				Answer:   "I require 24-hour notice for cancellations or rescheduling. This allows me to offer your time slot to other clients who may be waiting. Cancellations with less than 24 hours notice may be subject to the full session fee.",
			},
			{
				Question: "How long are therapy sessions?",
				Answer:   "Individual therapy sessions are 50 minutes, and couples sessions are 60 minutes. This provides adequate time to explore issues deeply while maintaining therapeutic boundaries and allowing time for integration between sessions.",
			},
			{
				Question: "How often should I attend sessions?",
				Answer:   "Most clients benefit from weekly sessions initially, which we may adjust based on your progress and needs. Some clients prefer bi-weekly sessions, while others may need more intensive support during particularly challenging periods.",
			},
		},
	}
}
