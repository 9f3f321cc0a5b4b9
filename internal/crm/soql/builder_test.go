package soql

import "testing"

func TestBuilderString(t *testing.T) {
	tests := []struct {
		name string
		b    *Builder
		want string
	}{
		{
			name: "relationship fields with order and limit",
			b: Select("Id", "Name", "Points_Awarded__c").
				Fields("Order__r.OrderNumber").
				From("Conversion_Request__c").
				OrderBy("CreatedDate DESC").
				Limit(50),
			want: "SELECT Id, Name, Points_Awarded__c, Order__r.OrderNumber FROM Conversion_Request__c ORDER BY CreatedDate DESC LIMIT 50",
		},
		{
			name: "multiple conditions",
			b:    Select("Id").From("Product2").Where("IsActive = true").Where(Eq("Family", "Adhesives")),
			want: "SELECT Id FROM Product2 WHERE IsActive = true AND Family = 'Adhesives'",
		},
		{
			name: "whitespace collapsed",
			b:    Select("Id,\n\t  Name").From("Account").Where("Type  =\n 'Dealer'"),
			want: "SELECT Id, Name FROM Account WHERE Type = 'Dealer'",
		},
		{
			name: "blank where ignored",
			b:    Select("Id").From("Account").Where("   "),
			want: "SELECT Id FROM Account",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.String(); got != tt.want {
				t.Errorf("got  %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestBuildValidation(t *testing.T) {
	if _, err := Select().From("Account").Build(); err == nil {
		t.Error("expected error for empty field list")
	}
	if _, err := Select("Id").Build(); err == nil {
		t.Error("expected error for missing object")
	}
	if _, err := Select("Id").From("Account").Limit(-1).Build(); err == nil {
		t.Error("expected error for negative limit")
	}
	if q, err := Select("Id").From("Account").Build(); err != nil || q != "SELECT Id FROM Account" {
		t.Errorf("Build() = %q, %v", q, err)
	}
}

func TestQuoteEscapes(t *testing.T) {
	if got := Quote(`O'Brien \ Sons`); got != `'O\'Brien \\ Sons'` {
		t.Errorf("Quote = %s", got)
	}
	if got := In("Id", "a", "b'"); got != `Id IN ('a', 'b\'')` {
		t.Errorf("In = %s", got)
	}
}
