package common

import "testing"

func TestGetFolderFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		expected string
	}{
		{
			name:     "no folder specified returns empty",
			args:     map[string]interface{}{},
			expected: "",
		},
		{
			name: "folder specified returns folder",
			args: map[string]interface{}{
				"folder": "Projects/2026",
			},
			expected: "Projects/2026",
		},
		{
			name: "folder is trimmed",
			args: map[string]interface{}{
				"folder": "  Archive  ",
			},
			expected: "Archive",
		},
		{
			name: "folder with other params",
			args: map[string]interface{}{
				"folder": "inbox",
				"count":  float64(10),
			},
			expected: "inbox",
		},
		{
			name:     "nil args returns empty",
			args:     nil,
			expected: "",
		},
		{
			name: "non-string folder type returns empty",
			args: map[string]interface{}{
				"folder": 123,
			},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetFolderFromArgs(tt.args)
			if result != tt.expected {
				t.Errorf("GetFolderFromArgs() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestGetCountFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		def      int
		expected int
	}{
		{
			name:     "no count returns default",
			args:     map[string]interface{}{},
			def:      25,
			expected: 25,
		},
		{
			name: "count as float64 is converted",
			args: map[string]interface{}{
				"count": float64(7),
			},
			def:      25,
			expected: 7,
		},
		{
			name: "non-numeric count returns default",
			args: map[string]interface{}{
				"count": "ten",
			},
			def:      25,
			expected: 25,
		},
		{
			name:     "nil args returns default",
			args:     nil,
			def:      10,
			expected: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetCountFromArgs(tt.args, tt.def)
			if result != tt.expected {
				t.Errorf("GetCountFromArgs() = %d, expected %d", result, tt.expected)
			}
		})
	}
}
