package email

import "fmt"

// LowStockAlert carries the details rendered into a low stock mail.
type LowStockAlert struct {
	ProductCode  string
	ProductName  string
	AvailableQty int
	MinStock     int
	Location     string
}

// BuildLowStockBody builds the HTML body for a low stock alert email.
func BuildLowStockBody(a LowStockAlert) string {
	location := a.Location
	if location == "" {
		location = "unassigned"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #f5576c 0%%, #f093fb 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Low stock alert</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">The following product has dropped below its minimum stock threshold.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Product</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold;">%s <span style="font-family: monospace; color: #666;">(%s)</span></p>
		</div>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee; color: #666;">Available</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right; font-weight: bold; color: #f5576c;">%d unit(s)</td>
			</tr>
			<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee; color: #666;">Minimum</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%d unit(s)</td>
			</tr>
			<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee; color: #666;">Default shelf</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>
		</table>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This email was sent automatically. Adjust the product's minimum stock threshold to change when alerts fire.
		</p>
	</div>
</body>
</html>`, a.ProductName, a.ProductCode, a.AvailableQty, a.MinStock, location)
}
