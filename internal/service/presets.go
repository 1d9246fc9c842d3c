package service

import "latemate_console/internal/models"

// Preset is a ready-made scenario offered on the measure page.
type Preset struct {
	Name     string                `json:"name"`
	Scenario models.MeasureRequest `json:"scenario"`
}

func intPtr(v int) *int { return &v }

// Presets returns the built-in scenarios.
func (s *MeasurementSession) Presets() []Preset {
	return []Preset{
		{
			Name: "type-a",
			Scenario: models.NewMeasureRequest(models.Scenario{
				DurationMS: 300,
				Start:      models.InputReport{Type: models.ReportKeyboard, PressedKeys: []string{"a"}},
				Followup: &models.Followup{
					AfterMS: 1,
					Report:  models.InputReport{Type: models.ReportKeyboard},
				},
				After: []models.InputReport{
					{Type: models.ReportKeyboard, PressedKeys: []string{"backspace"}},
					{Type: models.ReportKeyboard},
				},
			}),
		},
		{
			Name: "draw",
			Scenario: models.NewMeasureRequest(models.Scenario{
				DurationMS: 150,
				Start:      models.InputReport{Type: models.ReportMouse, Buttons: []string{"left"}},
				Followup: &models.Followup{
					AfterMS: 1,
					Report:  models.InputReport{Type: models.ReportMouse},
				},
				After: []models.InputReport{
					{Type: models.ReportKeyboard, Modifiers: []string{"l_meta"}},
					{Type: models.ReportKeyboard, Modifiers: []string{"l_meta"}, PressedKeys: []string{"z"}},
					{Type: models.ReportKeyboard},
				},
			}),
		},
		{
			Name: "doom",
			Scenario: models.NewMeasureRequest(models.Scenario{
				DurationMS: 300,
				Start:      models.InputReport{Type: models.ReportMouse, Y: intPtr(-80)},
				After:      []models.InputReport{{Type: models.ReportMouse, Y: intPtr(80)}},
			}),
		},
	}
}
